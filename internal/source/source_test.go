package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r io.ByteReader) (string, error) {
	t.Helper()
	var sb strings.Builder
	for {
		c, err := r.ReadByte()
		if err != nil {
			return sb.String(), err
		}
		sb.WriteByte(c)
	}
}

func TestReplay_Unthrottled(t *testing.T) {
	r := NewReplay(context.Background(), strings.NewReader("$GPRMC*4B\r\n"), 0)
	got, err := readAll(t, r)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "$GPRMC*4B\r\n", got)
	assert.NoError(t, r.Close())
}

func TestReplay_Paced(t *testing.T) {
	const rate = 200
	r := NewReplay(context.Background(), strings.NewReader(strings.Repeat("x", 41)), rate)

	start := time.Now()
	got, err := readAll(t, r)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, io.EOF)
	assert.Len(t, got, 41)
	// 41 bytes at 200/s need at least 40 intervals of 5ms, less the limiter slack
	assert.GreaterOrEqual(t, elapsed, 120*time.Millisecond)
}

func TestReplay_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewReplay(ctx, strings.NewReader("abcdef"), 0)

	c, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('a'), c)

	cancel()
	_, err = r.ReadByte()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drive.nmea")
	require.NoError(t, os.WriteFile(path, []byte("$A*41"), 0o644))

	s, err := Open(context.Background(), "/dev/does-not-matter", 9600, path, 0)
	require.NoError(t, err)
	got, err := readAll(t, s)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "$A*41", got)
	assert.NoError(t, s.Close())

	_, err = OpenReplay(context.Background(), filepath.Join(t.TempDir(), "missing.nmea"), 0)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestOpen_NothingConfigured(t *testing.T) {
	_, err := Open(context.Background(), "", 9600, "", 0)
	assert.Error(t, err)
}

func TestOpenSerial_MissingPort(t *testing.T) {
	_, err := OpenSerial(filepath.Join(t.TempDir(), "ttyNONE"), 9600)
	assert.Error(t, err)
}
