// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"encoding/hex"
	"fmt"
)

// Checksum is the XOR of every byte between '$' and '*' (both exclusive).
func Checksum(payload []byte) byte {
	sum := byte(0)
	for _, b := range payload {
		sum ^= b
	}
	return sum
}

// VerifyChecksum recomputes the checksum of the frame payload and compares
// it with the two hex digits that followed '*'. Either case is accepted for
// the digits; anything that is not hex counts as a mismatch.
func VerifyChecksum(fr Frame) error {
	want, err := hex.DecodeString(string(fr.Claimed[:]))
	if err != nil || len(want) != 1 {
		return fmt.Errorf("%w: bad digits %q", ErrChecksumMismatch, fr.Claimed[:])
	}
	if got := Checksum(fr.Payload); got != want[0] {
		return fmt.Errorf("%w: calculated %02X, claimed %02X", ErrChecksumMismatch, got, want[0])
	}
	return nil
}

// Sentence wraps a payload into a complete "$payload*HH" sentence.
func Sentence(payload string) string {
	return fmt.Sprintf("$%s*%02X", payload, Checksum([]byte(payload)))
}
