// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"fmt"
)

// Rejection kinds. Every one of them is local to a single sentence: the frame
// is skipped and the stream carries on.
var (
	ErrFrameTooLong        = errors.New("frame too long")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrWrongSentenceType   = errors.New("wrong sentence type")
	ErrTruncatedSentence   = errors.New("truncated sentence")
	ErrMalformedTime       = errors.New("malformed time")
	ErrMalformedCoordinate = errors.New("malformed coordinate")
	ErrFixNotActive        = errors.New("fix not active")
)

var reasons = []struct {
	err   error
	label string
}{
	{ErrFrameTooLong, "frame_too_long"},
	{ErrChecksumMismatch, "checksum_mismatch"},
	{ErrWrongSentenceType, "wrong_sentence_type"},
	{ErrTruncatedSentence, "truncated_sentence"},
	{ErrMalformedTime, "malformed_time"},
	{ErrMalformedCoordinate, "malformed_coordinate"},
	{ErrFixNotActive, "fix_not_active"},
}

// RejectError reports why the frame with the given order index was not
// turned into a fix.
type RejectError struct {
	Order uint64
	Field string // empty for frame-level rejections
	Err   error
}

func (e *RejectError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("frame %d: %v", e.Order, e.Err)
	}
	return fmt.Sprintf("frame %d: field %s: %v", e.Order, e.Field, e.Err)
}

func (e *RejectError) Unwrap() error { return e.Err }

// Reason maps an error to a short stable label for logs, metrics and stored
// skip records. Errors outside the rejection set report their own label
// through a Reason() string method, or map to "other".
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	var labeled interface{ Reason() string }
	if errors.As(err, &labeled) {
		return labeled.Reason()
	}
	return "other"
}
