// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package source provides the byte streams a session reads NMEA text from.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"

	serial "github.com/jacobsa/go-serial/serial"
	"go.uber.org/ratelimit"
)

// Stream is a byte-at-a-time source that must be closed after use.
type Stream interface {
	io.ByteReader
	io.Closer
}

type stream struct {
	*bufio.Reader
	io.Closer
}

// OpenSerial opens a GPS receiver on a serial port at 8N1.
func OpenSerial(portName string, baudRate int) (Stream, error) {
	serialOpts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPS serial port %s: %w", portName, err)
	}
	log.Printf("source: GPS serial port opened on %s at %d baud", portName, baudRate)
	return stream{Reader: bufio.NewReader(port), Closer: port}, nil
}

// Replay yields the bytes of r paced to bytesPerSec, or unthrottled when
// bytesPerSec is zero. ReadByte returns ctx.Err() once ctx is done.
type Replay struct {
	ctx context.Context
	r   *bufio.Reader
	rl  ratelimit.Limiter
	c   io.Closer
}

// NewReplay wraps r. If r is an io.Closer it is closed by Close.
func NewReplay(ctx context.Context, r io.Reader, bytesPerSec int) *Replay {
	rl := ratelimit.NewUnlimited()
	if bytesPerSec > 0 {
		rl = ratelimit.New(bytesPerSec)
	}
	c, _ := r.(io.Closer)
	return &Replay{ctx: ctx, r: bufio.NewReader(r), rl: rl, c: c}
}

// OpenReplay opens a captured NMEA log file for replay.
func OpenReplay(ctx context.Context, path string, bytesPerSec int) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	log.Printf("source: replaying %s at %s", path, rateString(bytesPerSec))
	return NewReplay(ctx, f, bytesPerSec), nil
}

func rateString(bytesPerSec int) string {
	if bytesPerSec <= 0 {
		return "full speed"
	}
	return fmt.Sprintf("%d bytes/s", bytesPerSec)
}

func (r *Replay) ReadByte() (byte, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	r.rl.Take()
	return r.r.ReadByte()
}

func (r *Replay) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}

// Open picks the configured source: the replay file when set, the serial
// port otherwise.
func Open(ctx context.Context, serialPort string, baudRate int, replayFile string, bytesPerSec int) (Stream, error) {
	if replayFile != "" {
		return OpenReplay(ctx, replayFile, bytesPerSec)
	}
	if serialPort == "" {
		return nil, fmt.Errorf("no GPS source configured")
	}
	return OpenSerial(serialPort, baudRate)
}
