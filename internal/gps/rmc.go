// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"strings"
)

// DefaultSentenceID is the recommended minimum position sentence.
const DefaultSentenceID = "GPRMC"

// Decoder turns verified frames into fixes. It holds no mutable state and is
// safe for concurrent use.
type Decoder struct {
	sentenceID string
}

// NewDecoder returns a decoder that only accepts sentences whose first field
// equals sentenceID exactly. An empty id selects DefaultSentenceID.
func NewDecoder(sentenceID string) *Decoder {
	if sentenceID == "" {
		sentenceID = DefaultSentenceID
	}
	return &Decoder{sentenceID: sentenceID}
}

// rmcState carries the partially decoded fix between positional fields.
type rmcState struct {
	fix Fix
}

type fieldStep struct {
	name  string
	apply func(d *Decoder, st *rmcState, tok string) error
}

// RMC fields:
//
//	0: sentence id (GPRMC)
//	1: UTC time (hhmmss)
//	2: status (A=active, V=void)
//	3: latitude (ddmm.mmmm)
//	4: N/S
//	5: longitude (dddmm.mmmm)
//	6: E/W
//	7..: speed, track, date, magnetic variation (ignored)
var rmcFields = []fieldStep{
	{"sentence-id", func(d *Decoder, _ *rmcState, tok string) error {
		if tok != d.sentenceID {
			return fmt.Errorf("%w: got %q, want %q", ErrWrongSentenceType, tok, d.sentenceID)
		}
		return nil
	}},
	{"utc-time", func(_ *Decoder, st *rmcState, tok string) (err error) {
		st.fix.Hours, st.fix.Minutes, st.fix.Seconds, err = ParseTime(tok)
		return err
	}},
	{"status", func(_ *Decoder, st *rmcState, tok string) error {
		if err := ParseStatus(tok); err != nil {
			return err
		}
		st.fix.Valid = true
		return nil
	}},
	{"lat-value", func(_ *Decoder, st *rmcState, tok string) (err error) {
		st.fix.Latitude, err = ParseDegreeMinutes(Latitude, tok)
		return err
	}},
	{"lat-hemisphere", func(_ *Decoder, st *rmcState, tok string) error {
		st.fix.Latitude = ApplyHemisphere(Latitude, st.fix.Latitude, tok)
		return nil
	}},
	{"lon-value", func(_ *Decoder, st *rmcState, tok string) (err error) {
		st.fix.Longitude, err = ParseDegreeMinutes(Longitude, tok)
		return err
	}},
	{"lon-hemisphere", func(_ *Decoder, st *rmcState, tok string) error {
		st.fix.Longitude = ApplyHemisphere(Longitude, st.fix.Longitude, tok)
		return nil
	}},
}

// Decode verifies the frame checksum and decodes its fields in order,
// stopping at the first field that fails. Every failure is a *RejectError
// wrapping one of the Err* rejection kinds.
func (d *Decoder) Decode(fr Frame) (Fix, error) {
	if fr.Err != nil {
		return Fix{}, fr.Err
	}
	if err := VerifyChecksum(fr); err != nil {
		return Fix{}, &RejectError{Order: fr.Order, Err: err}
	}

	tokens := strings.Split(string(fr.Payload), ",")
	var st rmcState
	for i, step := range rmcFields {
		if i >= len(tokens) {
			return Fix{}, &RejectError{
				Order: fr.Order,
				Field: step.name,
				Err:   fmt.Errorf("%w: %d fields", ErrTruncatedSentence, len(tokens)),
			}
		}
		if err := step.apply(d, &st, tokens[i]); err != nil {
			return Fix{}, &RejectError{Order: fr.Order, Field: step.name, Err: err}
		}
	}
	return st.fix, nil
}
