package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/rmc_logger/internal/config"
	"github.com/relabs-tech/rmc_logger/internal/gps"
	"github.com/relabs-tech/rmc_logger/internal/monitoring"
	"github.com/relabs-tech/rmc_logger/internal/sink"
)

const exampleRMC = "GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"

var exampleFix = gps.Fix{
	Hours: 12, Minutes: 35, Seconds: 19,
	Latitude:  gps.Coordinate{Mantissa: 481173, Scale: 4},
	Longitude: gps.Coordinate{Mantissa: 11516667, Scale: 6},
	Valid:     true,
}

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// writeCapture stores a log with one fix, one checksum failure and one void fix.
func writeCapture(t *testing.T) string {
	t.Helper()
	input := gps.Sentence(exampleRMC) + "\r\n" +
		"$" + exampleRMC + "*00\r\n" +
		gps.Sentence(strings.Replace(exampleRMC, ",A,", ",V,", 1)) + "\r\n"
	path := filepath.Join(t.TempDir(), "capture.nmea")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o644))
	return path
}

func TestBuildSinks(t *testing.T) {
	cfg := config.Defaults()
	_, err := buildSinks(cfg, "s1", nil)
	assert.Error(t, err, "no sink configured")

	dir := t.TempDir()
	cfg.OutputFile = filepath.Join(dir, "fixes.txt")
	cfg.DBPath = filepath.Join(dir, "fixes.db")
	set, err := buildSinks(cfg, "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"file " + cfg.OutputFile, "sqlite " + cfg.DBPath}, set.names)

	require.NoError(t, set.WriteFix(0, exampleFix))
	require.NoError(t, set.Close())

	db, err := sink.OpenDB(cfg.DBPath, "s2", cfg.SentenceID)
	require.NoError(t, err)
	defer db.Close()
	commits, err := db.Commits("s1")
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "12:35:19", commits[0].Time)
}

func TestBuildSinks_BadFile(t *testing.T) {
	cfg := config.Defaults()
	cfg.OutputFile = filepath.Join(t.TempDir(), "missing", "fixes.txt")
	_, err := buildSinks(cfg, "s1", nil)
	assert.Error(t, err)
}

func TestRunReplay_DryRun(t *testing.T) {
	cfg := config.Defaults()
	var out bytes.Buffer
	stats, err := RunReplay(context.Background(), cfg, ReplayOptions{Path: writeCapture(t), DryRun: true}, &out)
	require.NoError(t, err)

	assert.Equal(t, "0 12:35:19 48.1173 11.516667\n"+
		"1 skip checksum_mismatch\n"+
		"2 skip fix_not_active\n", out.String())
	assert.Equal(t, 1, stats.Fixes)
	assert.Equal(t, 2, stats.SkipTotal())
}

func TestRunReplay_WritesConfiguredFile(t *testing.T) {
	cfg := config.Defaults()
	cfg.OutputFile = filepath.Join(t.TempDir(), "fixes.txt")

	var out bytes.Buffer
	_, err := RunReplay(context.Background(), cfg, ReplayOptions{Path: writeCapture(t)}, &out)
	require.NoError(t, err)
	assert.Empty(t, out.String())

	got, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, "0 12:35:19 48.1173 11.516667\n", string(got))
}

func TestRunReplay_MissingFile(t *testing.T) {
	_, err := RunReplay(context.Background(), config.Defaults(),
		ReplayOptions{Path: filepath.Join(t.TempDir(), "nope.nmea"), DryRun: true}, io.Discard)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeFeed(t *testing.T) {
	fix := sink.NewFixMessage("s1", 4, exampleFix)
	b, err := json.Marshal(fix)
	require.NoError(t, err)
	got, err := decodeFeed(b)
	require.NoError(t, err)
	assert.Equal(t, fix, got)

	skip := sink.NewSkipMessage("s1", 5, gps.ErrFixNotActive)
	b, err = json.Marshal(skip)
	require.NoError(t, err)
	got, err = decodeFeed(b)
	require.NoError(t, err)
	assert.Equal(t, skip, got)

	_, err = decodeFeed([]byte(`{"type":"pose"}`))
	assert.Error(t, err)
	_, err = decodeFeed([]byte(`not json`))
	assert.Error(t, err)
}

func TestFormatFeed(t *testing.T) {
	assert.Equal(t, "[FIX ] #4      time=12:35:19 lat=48.1173 lon=11.516667 session=s1",
		formatFeed(sink.NewFixMessage("s1", 4, exampleFix)))
	assert.Equal(t, "[SKIP] #5      reason=fix_not_active session=s1",
		formatFeed(sink.NewSkipMessage("s1", 5, gps.ErrFixNotActive)))
}

func TestFeedToDisplay(t *testing.T) {
	d := sink.NewDisplay()
	require.NoError(t, feedToDisplay(d, sink.NewFixMessage("s1", 0, exampleFix)))
	require.NoError(t, feedToDisplay(d, sink.NewSkipMessage("s1", 1, gps.ErrChecksumMismatch)))

	bad := sink.NewFixMessage("s1", 2, exampleFix)
	bad.Time = "noon"
	assert.Error(t, feedToDisplay(d, bad))
	assert.Error(t, feedToDisplay(d, "pose"))

	require.NoError(t, d.Close())
	assert.ErrorIs(t, feedToDisplay(d, sink.NewFixMessage("s1", 3, exampleFix)), sink.ErrClosed)
}

func TestWebMux(t *testing.T) {
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>rmc</h1>"), 0o644))

	hub := sink.NewHub("")
	defer hub.Close()
	srv := httptest.NewServer(newWebMux(hub, static))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/fix")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	msg := sink.NewFixMessage("s1", 7, exampleFix)
	forwardToHub(hub, msg)

	resp, err = http.Get(srv.URL + "/api/fix")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got sink.FixMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, msg, got)

	page, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer page.Body.Close()
	body, err := io.ReadAll(page.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<h1>rmc</h1>")
}
