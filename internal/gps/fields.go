// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTime decodes a fixed-width HHMMSS field by pairing digits.
func ParseTime(s string) (hours, minutes, seconds int, err error) {
	if len(s) != 6 || !isDigits(s) {
		return 0, 0, 0, fmt.Errorf("%w: %q is not HHMMSS", ErrMalformedTime, s)
	}
	pair := func(i int) int { return int(s[i]-'0')*10 + int(s[i+1]-'0') }
	hours, minutes, seconds = pair(0), pair(2), pair(4)
	if hours > 23 || minutes > 59 || seconds > 59 {
		return 0, 0, 0, fmt.Errorf("%w: %q out of range", ErrMalformedTime, s)
	}
	return hours, minutes, seconds, nil
}

// ParseStatus accepts only "A" (active). "V" and anything else reject the
// sentence as not active.
func ParseStatus(s string) error {
	if s != "A" {
		return fmt.Errorf("%w: status %q", ErrFixNotActive, s)
	}
	return nil
}

// minutesGuardDigits is how many decimal-degree digits are kept beyond the
// fractional minute digits of the source: one minute is 1/60 degree, so a
// minute digit needs a little under two extra degree digits, plus one guard.
const minutesGuardDigits = 3

// maxMinuteDigits keeps the working scale within maxScale.
const maxMinuteDigits = maxScale - minutesGuardDigits

// ParseDegreeMinutes converts a DDMM.mmmm or DDDMM.mmmm field to decimal
// degrees. Degrees are floor(value/100) and minutes the remainder, which works
// for two and three digit degree prefixes alike. The axis only labels errors.
//
// The value is computed in integer arithmetic at a working scale of the
// number of fractional minute digits plus three, rounded half away from zero,
// then trailing zeros are dropped so the scale reflects the significant
// digits of the result.
func ParseDegreeMinutes(axis Axis, s string) (Coordinate, error) {
	bad := func(why string) (Coordinate, error) {
		return Coordinate{}, fmt.Errorf("%w: %s %q %s", ErrMalformedCoordinate, axis, s, why)
	}
	intPart, frac, _ := strings.Cut(s, ".")
	switch {
	case intPart == "" || !isDigits(intPart) || !isDigits(frac):
		return bad("is not numeric")
	case len(intPart) > 5:
		return bad("has too many degree digits")
	case len(frac) > maxMinuteDigits:
		return bad("has too many minute digits")
	}

	whole, _ := strconv.ParseInt(intPart, 10, 64)
	degrees, wholeMinutes := whole/100, whole%100
	if wholeMinutes >= 60 {
		return bad("has minutes above 59")
	}
	var fracMinutes int64
	if frac != "" {
		fracMinutes, _ = strconv.ParseInt(frac, 10, 64)
	}

	k := len(frac)
	scale := k + minutesGuardDigits
	// minutes * 10^k, then minutes/60 at the working scale is
	// minutes*10^k * 10^3 / 60.
	num := (wholeMinutes*pow10[k] + fracMinutes) * pow10[minutesGuardDigits]
	const den = 60
	mantissa := degrees*pow10[scale] + (2*num+den)/(2*den)

	return Coordinate{Mantissa: mantissa, Scale: uint8(scale)}.Normalize(), nil
}

// ApplyHemisphere negates the coordinate when the hemisphere field is the
// negative letter of the axis (S for latitude, W for longitude). Any other
// value leaves the sign alone.
func ApplyHemisphere(axis Axis, c Coordinate, hemi string) Coordinate {
	if hemi == axis.negative() {
		return c.Neg()
	}
	return c
}
