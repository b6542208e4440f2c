// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/relabs-tech/rmc_logger/internal/gps"
)

// File writes one text line per committed fix:
//
//	<order> <HH:MM:SS> <lat> <lon>
//
// Coordinates keep their own scale. Skips are not written.
type File struct {
	w      *bufio.Writer
	c      io.Closer
	closed bool
}

// CreateFile truncates or creates path and returns a sink writing to it.
func CreateFile(path string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &File{w: bufio.NewWriter(f), c: f}, nil
}

// NewWriter returns a sink writing to w. If w is an io.Closer it is closed
// by Close.
func NewWriter(w io.Writer) *File {
	c, _ := w.(io.Closer)
	return &File{w: bufio.NewWriter(w), c: c}
}

func (f *File) WriteFix(order uint64, fix gps.Fix) error {
	if f.closed {
		return ErrClosed
	}
	if _, err := fmt.Fprintf(f.w, "%d %s %s %s\n", order, fix.Time(), fix.Latitude, fix.Longitude); err != nil {
		return err
	}
	return f.w.Flush()
}

func (f *File) Skip(uint64, error) error {
	if f.closed {
		return ErrClosed
	}
	return nil
}

func (f *File) Close() error {
	if f.closed {
		return ErrClosed
	}
	f.closed = true
	err := f.w.Flush()
	if f.c != nil {
		if cerr := f.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
