package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/rmc_logger/internal/app"
	"github.com/relabs-tech/rmc_logger/internal/config"
)

func main() {
	configPath := flag.String("config", "rmc_config.txt", "configuration file")
	file := flag.String("file", "", "captured NMEA log to replay (defaults to REPLAY_FILE)")
	rate := flag.Int("rate", 0, "replay speed in bytes per second, 0 for unthrottled")
	dryRun := flag.Bool("dry-run", false, "print commits instead of writing the configured sinks")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	opts := app.ReplayOptions{Path: *file, BytesPerSec: *rate, DryRun: *dryRun}
	if opts.Path == "" {
		opts.Path = cfg.ReplayFile
	}
	if opts.Path == "" {
		log.Fatalf("no log to replay: pass -file or set REPLAY_FILE")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := app.RunReplay(ctx, cfg, opts, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("fatal: %v", err)
	}
	log.Printf("replay: %s", stats)
}
