// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"io"
	"sync/atomic"
)

// DefaultMaxLen is the NMEA 0183 sentence limit.
const DefaultMaxLen = 82

// Frame is one delimited "$...*HH" unit taken off the raw stream.
//
// A frame is immutable once handed out. Frames that could not be captured
// intact (currently only overlong ones) still get an order index and carry
// the rejection in Err so that their slot is committed as a skip.
type Frame struct {
	Order   uint64
	Payload []byte  // bytes between '$' and '*'
	Claimed [2]byte // raw checksum digits after '*'
	Sum     byte    // running XOR kept while framing
	Err     error
}

// FramerOptions configures a Framer.
type FramerOptions struct {
	// MaxLen bounds a whole sentence, from '$' through the second checksum
	// digit. Zero means DefaultMaxLen.
	MaxLen int
	// StopOnLineEnd ends the stream at the first CR or LF instead of
	// treating line terminators as separators between sentences.
	StopOnLineEnd bool
}

// Framer reassembles sentences from a byte stream one character at a time.
// Next is not safe for concurrent use; the counters may be read from any
// goroutine.
type Framer struct {
	src  io.ByteReader
	opts FramerOptions

	buf      []byte
	sum      byte
	claimed  [2]byte
	nclaimed int
	inFrame  bool
	starred  bool
	overflow bool
	done     bool
	next     uint64

	bytesRead atomic.Int64
	abandoned atomic.Int64
}

// NewFramer returns a framer reading from src.
func NewFramer(src io.ByteReader, opts FramerOptions) *Framer {
	if opts.MaxLen <= 0 {
		opts.MaxLen = DefaultMaxLen
	}
	return &Framer{
		src:  src,
		opts: opts,
		buf:  make([]byte, 0, opts.MaxLen),
	}
}

// BytesRead reports how many bytes have been consumed from the source.
func (f *Framer) BytesRead() int64 { return f.bytesRead.Load() }

// Abandoned reports how many partial frames were dropped because a new '$',
// a line terminator or the end of the stream interrupted them.
func (f *Framer) Abandoned() int64 { return f.abandoned.Load() }

// maxPayload is the payload room left once '$', '*' and the two checksum
// digits are accounted for.
func (f *Framer) maxPayload() int {
	return f.opts.MaxLen - 4
}

// Next returns the next complete frame. It returns io.EOF when the source is
// exhausted (or, with StopOnLineEnd, at the first line terminator) and passes
// any other read error through unchanged.
func (f *Framer) Next() (Frame, error) {
	if f.done {
		return Frame{}, io.EOF
	}
	for {
		c, err := f.src.ReadByte()
		if err != nil {
			f.abandon()
			if err == io.EOF {
				f.done = true
			}
			return Frame{}, err
		}
		f.bytesRead.Add(1)

		switch {
		case c == '$':
			f.abandon()
			f.inFrame = true
		case c == '\r' || c == '\n':
			f.abandon()
			if f.opts.StopOnLineEnd {
				f.done = true
				return Frame{}, io.EOF
			}
		case !f.inFrame:
			// noise between sentences
		case f.starred:
			f.claimed[f.nclaimed] = c
			f.nclaimed++
			if f.nclaimed == len(f.claimed) {
				return f.emit(), nil
			}
		case c == '*':
			f.starred = true
		case len(f.buf) >= f.maxPayload():
			f.overflow = true
		default:
			f.buf = append(f.buf, c)
			f.sum ^= c
		}
	}
}

func (f *Framer) emit() Frame {
	fr := Frame{
		Order:   f.next,
		Payload: append([]byte(nil), f.buf...),
		Claimed: f.claimed,
		Sum:     f.sum,
	}
	if f.overflow {
		fr.Err = &RejectError{Order: fr.Order, Err: ErrFrameTooLong}
	}
	f.next++
	f.reset()
	return fr
}

// abandon drops a partially built frame, counting it if there was one.
func (f *Framer) abandon() {
	if f.inFrame {
		f.abandoned.Add(1)
	}
	f.reset()
}

func (f *Framer) reset() {
	f.buf = f.buf[:0]
	f.sum = 0
	f.nclaimed = 0
	f.inFrame = false
	f.starred = false
	f.overflow = false
}
