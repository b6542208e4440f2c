// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session turns a raw NMEA byte stream into ordered sink commits.
//
// A Session frames the stream on one goroutine, decodes frames on a bounded
// set of concurrent tasks and commits their results through a Sequencer, so
// the sink sees one call per order index in increasing order no matter how
// the tasks interleave.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/rmc_logger/internal/gps"
	"github.com/relabs-tech/rmc_logger/internal/monitoring"
	"github.com/relabs-tech/rmc_logger/internal/sink"
)

// Config bounds a session.
type Config struct {
	MaxLen        int    // whole-sentence bound; 0 means gps.DefaultMaxLen
	SentenceID    string // exact first field; "" means gps.DefaultSentenceID
	FixCap        int    // fixes that end the session; 0 runs to end of stream
	Workers       int    // concurrent decode tasks
	QueueSize     int    // frames buffered ahead of the dispatcher
	StopOnLineEnd bool
}

// DefaultConfig mirrors the configuration file defaults.
func DefaultConfig() Config {
	return Config{
		MaxLen:     gps.DefaultMaxLen,
		SentenceID: gps.DefaultSentenceID,
		FixCap:     100,
		Workers:    8,
		QueueSize:  32,
	}
}

// Stats summarizes a finished session.
type Stats struct {
	Frames    uint64         // frames admitted to decode tasks
	Fixes     int            // fixes written
	Skips     map[string]int // skipped order slots by reason
	Abandoned int64          // partial frames dropped by the framer
	BytesRead int64
	Duration  time.Duration
}

// SkipTotal returns the number of skipped order slots.
func (s Stats) SkipTotal() int {
	n := 0
	for _, v := range s.Skips {
		n += v
	}
	return n
}

func (s Stats) String() string {
	reasons := make([]string, 0, len(s.Skips))
	for k, v := range s.Skips {
		reasons = append(reasons, fmt.Sprintf("%s=%d", k, v))
	}
	sort.Strings(reasons)
	return fmt.Sprintf("%s frames, %s fixes, %s skips [%s], %d abandoned, %s read in %s",
		humanize.Comma(int64(s.Frames)),
		humanize.Comma(int64(s.Fixes)),
		humanize.Comma(int64(s.SkipTotal())),
		strings.Join(reasons, " "),
		s.Abandoned,
		humanize.Bytes(uint64(s.BytesRead)),
		s.Duration.Round(time.Millisecond),
	)
}

// Option configures a Session.
type Option func(*Session)

// WithMetrics records session activity on m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) { s.ID = id }
}

// Session owns everything one run needs: its configuration, its sink and
// the decoder shared by all tasks.
type Session struct {
	ID string

	cfg     Config
	sink    sink.Sink
	decoder *gps.Decoder
	metrics *monitoring.Metrics

	// decode is swapped in tests to inject per-task delays.
	decode func(gps.Frame) (gps.Fix, error)
}

// New returns a session writing to s. The sink is closed when Run returns.
func New(cfg Config, s sink.Sink, opts ...Option) *Session {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	sess := &Session{
		ID:      uuid.NewString(),
		cfg:     cfg,
		sink:    s,
		decoder: gps.NewDecoder(cfg.SentenceID),
	}
	sess.decode = sess.decoder.Decode
	for _, opt := range opts {
		opt(sess)
	}
	return sess
}

// Run reads src until end of stream, the fix cap, a fatal error or ctx
// cancellation, then waits for in-flight tasks and closes the sink once.
//
// Source read errors other than io.EOF and sink errors are fatal and
// returned. A source blocked in ReadByte is not interrupted; callers stop it
// by closing the underlying device after Run returns.
func (s *Session) Run(ctx context.Context, src io.ByteReader) (Stats, error) {
	start := time.Now()
	s.metrics.SessionStarted()
	monitoring.Logf("session: %s started (cap %d, %d workers)", s.ID, s.cfg.FixCap, s.cfg.Workers)

	seq := NewSequencer(s.sink, s.cfg.FixCap)
	seq.metrics = s.metrics

	framer := gps.NewFramer(src, gps.FramerOptions{
		MaxLen:        s.cfg.MaxLen,
		StopOnLineEnd: s.cfg.StopOnLineEnd,
	})
	frames := make(chan gps.Frame, s.cfg.QueueSize)
	readErr := make(chan error, 1)
	stopRead := make(chan struct{})
	defer close(stopRead)

	go func() {
		defer close(frames)
		for {
			fr, err := framer.Next()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- fmt.Errorf("read source: %w", err)
				}
				return
			}
			select {
			case frames <- fr:
			case <-stopRead:
				return
			}
		}
	}()

	stopAbort := context.AfterFunc(ctx, func() { seq.Abort(ctx.Err()) })
	defer stopAbort()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	var admitted uint64
dispatch:
	for {
		select {
		case <-seq.CapReached():
			break dispatch
		case <-gctx.Done():
			break dispatch
		case fr, ok := <-frames:
			if !ok {
				break dispatch
			}
			// the cap may have fired while this frame was queued
			select {
			case <-seq.CapReached():
				break dispatch
			default:
			}
			admitted++
			s.metrics.FrameAdmitted()
			g.Go(func() error { return s.task(seq, fr) })
		}
	}

	err := g.Wait()
	if err == nil {
		select {
		case err = <-readErr:
		default:
			err = ctx.Err()
		}
	}
	if cerr := s.sink.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close sink: %w", cerr))
	}

	stats := Stats{
		Frames:    admitted,
		Fixes:     seq.Committed(),
		Skips:     seq.Skips(),
		Abandoned: framer.Abandoned(),
		BytesRead: framer.BytesRead(),
		Duration:  time.Since(start),
	}
	s.metrics.SourceProgress(stats.BytesRead, stats.Abandoned)
	monitoring.Logf("session: %s finished: %s", s.ID, stats)
	if err != nil {
		return stats, fmt.Errorf("session %s: %w", s.ID, err)
	}
	return stats, nil
}

// task decodes one frame and commits the outcome in order.
func (s *Session) task(seq *Sequencer, fr gps.Frame) error {
	start := time.Now()
	defer func() { s.metrics.TaskDone(time.Since(start).Seconds()) }()

	fix, reject := s.decode(fr)
	return seq.Commit(fr.Order, fix, reject)
}
