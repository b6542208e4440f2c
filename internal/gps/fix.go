// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"strconv"
	"strings"
)

// Fix is one decoded RMC position/time record.
//
// Latitude and Longitude are fixed-point values that carry their own scale;
// the two may differ in scale within the same fix.
type Fix struct {
	Hours     int        `json:"hours"`
	Minutes   int        `json:"minutes"`
	Seconds   int        `json:"seconds"`
	Latitude  Coordinate `json:"lat"` // decimal degrees, south negative
	Longitude Coordinate `json:"lon"` // decimal degrees, west negative
	Valid     bool       `json:"valid"`
}

// Time renders the UTC time of the fix as HH:MM:SS.
func (f Fix) Time() string {
	return fmt.Sprintf("%02d:%02d:%02d", f.Hours, f.Minutes, f.Seconds)
}

// maxScale keeps every coordinate mantissa comfortably inside int64 even
// after normalizing two coordinates to a common scale.
const maxScale = 15

var pow10 = [...]int64{
	1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000,
	1000000000, 10000000000, 100000000000, 1000000000000,
	10000000000000, 100000000000000, 1000000000000000,
}

// Coordinate is a decimal-degrees value equal to Mantissa / 10^Scale.
//
// Mantissas of two coordinates are only comparable after normalizing by
// scale; use Cmp rather than comparing the fields directly.
type Coordinate struct {
	Mantissa int64
	Scale    uint8
}

// Float64 returns the coordinate as a float. The conversion is inexact.
func (c Coordinate) Float64() float64 {
	return float64(c.Mantissa) / float64(pow10[c.Scale])
}

// Neg returns the coordinate with its sign flipped.
func (c Coordinate) Neg() Coordinate {
	return Coordinate{Mantissa: -c.Mantissa, Scale: c.Scale}
}

// Normalize strips trailing fractional zeros so that equal values share one
// representation.
func (c Coordinate) Normalize() Coordinate {
	for c.Scale > 0 && c.Mantissa%10 == 0 {
		c.Mantissa /= 10
		c.Scale--
	}
	return c
}

// Cmp compares two coordinates by value and returns -1, 0 or +1.
func (c Coordinate) Cmp(o Coordinate) int {
	a, b := c.Mantissa, o.Mantissa
	switch {
	case c.Scale < o.Scale:
		a *= pow10[o.Scale-c.Scale]
	case o.Scale < c.Scale:
		b *= pow10[c.Scale-o.Scale]
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// String renders the exact decimal value with Scale fractional digits.
func (c Coordinate) String() string {
	m := c.Mantissa
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	if c.Scale == 0 {
		return sign + strconv.FormatInt(m, 10)
	}
	p := pow10[c.Scale]
	return fmt.Sprintf("%s%d.%0*d", sign, m/p, int(c.Scale), m%p)
}

// MarshalJSON encodes the coordinate as a JSON number with its exact digits.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number written by MarshalJSON.
func (c *Coordinate) UnmarshalJSON(b []byte) error {
	v, err := ParseDecimal(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseDecimal parses a plain decimal string such as "-48.1173" keeping every
// fractional digit as scale.
func ParseDecimal(s string) (Coordinate, error) {
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	if intPart == "" || !isDigits(intPart) || !isDigits(frac) || len(frac) > maxScale {
		return Coordinate{}, fmt.Errorf("invalid decimal %q", s)
	}
	m, err := strconv.ParseInt(intPart+frac, 10, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	if neg {
		m = -m
	}
	return Coordinate{Mantissa: m, Scale: uint8(len(frac))}, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Axis tells the coordinate helpers which hemisphere letters apply.
type Axis int

const (
	Latitude Axis = iota
	Longitude
)

func (a Axis) String() string {
	switch a {
	case Latitude:
		return "latitude"
	case Longitude:
		return "longitude"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// negative returns the hemisphere letter that makes the axis negative.
func (a Axis) negative() string {
	if a == Longitude {
		return "W"
	}
	return "S"
}
