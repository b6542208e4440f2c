// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sink holds the destinations a session commits fixes to.
//
// Every method of a Sink is called from inside the session's commit section,
// one call at a time and in strictly increasing order.
package sink

import (
	"errors"
	"fmt"

	"github.com/tevino/abool/v2"

	"github.com/relabs-tech/rmc_logger/internal/gps"
)

// ErrClosed is returned by sinks used after Close.
var ErrClosed = errors.New("sink closed")

// Sink receives exactly one WriteFix or Skip per order index, then Close once.
type Sink interface {
	WriteFix(order uint64, fix gps.Fix) error
	Skip(order uint64, reason error) error
	Close() error
}

// Fanout forwards every commit to each child in turn. The first child error
// is returned and stops the remaining children for that commit.
type Fanout struct {
	sinks  []Sink
	closed *abool.AtomicBool
}

// NewFanout returns a sink writing to all of sinks, in argument order.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, closed: abool.New()}
}

func (f *Fanout) WriteFix(order uint64, fix gps.Fix) error {
	if f.closed.IsSet() {
		return ErrClosed
	}
	for i, s := range f.sinks {
		if err := s.WriteFix(order, fix); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}

func (f *Fanout) Skip(order uint64, reason error) error {
	if f.closed.IsSet() {
		return ErrClosed
	}
	for i, s := range f.sinks {
		if err := s.Skip(order, reason); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}

// Close closes every child even if some fail, joining their errors.
func (f *Fanout) Close() error {
	if !f.closed.SetToIf(false, true) {
		return ErrClosed
	}
	var errs []error
	for i, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
