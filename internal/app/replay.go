package app

import (
	"context"
	"fmt"
	"io"

	"github.com/relabs-tech/rmc_logger/internal/config"
	"github.com/relabs-tech/rmc_logger/internal/session"
	"github.com/relabs-tech/rmc_logger/internal/sink"
	"github.com/relabs-tech/rmc_logger/internal/source"
)

// ReplayOptions control a replay of a captured NMEA log.
type ReplayOptions struct {
	Path        string
	BytesPerSec int  // 0 replays as fast as possible
	DryRun      bool // print commits instead of writing the configured sinks
}

// RunReplay feeds a captured log through a session. In dry-run mode every
// commit is printed to out; otherwise the configured file and database sinks
// receive the fixes just as a live run would.
func RunReplay(ctx context.Context, cfg *config.Config, opts ReplayOptions, out io.Writer) (session.Stats, error) {
	src, err := source.OpenReplay(ctx, opts.Path, opts.BytesPerSec)
	if err != nil {
		return session.Stats{}, err
	}
	defer src.Close()

	if !opts.DryRun {
		return runSession(ctx, cfg, src, nil, nil)
	}

	rec := &sink.Recorder{}
	stats, err := session.New(sessionConfig(cfg), rec).Run(ctx, src)
	for _, c := range rec.Calls() {
		fmt.Fprintln(out, formatCall(c))
	}
	return stats, err
}

func formatCall(c sink.Call) string {
	if c.Kind == "skip" {
		return fmt.Sprintf("%d skip %s", c.Order, c.Reason)
	}
	return fmt.Sprintf("%d %s %s %s", c.Order, c.Fix.Time(), c.Fix.Latitude, c.Fix.Longitude)
}
