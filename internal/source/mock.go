// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package source

import (
	"fmt"
	"math"
	"time"

	geo "github.com/kellydunn/golang-geo"

	"github.com/relabs-tech/rmc_logger/internal/gps"
)

// MockTrack generates RMC sentences for a receiver driving a slow circle.
// Every VoidEvery-th sentence reports a void fix; zero disables that.
type MockTrack struct {
	SentenceID string
	SpeedKnots float64
	VoidEvery  int

	pos     *geo.Point
	bearing float64
	clock   time.Time
	n       int
}

// NewMockTrack starts a track at lat/lon with the given UTC start time.
func NewMockTrack(lat, lon float64, start time.Time) *MockTrack {
	return &MockTrack{
		SentenceID: "GPRMC",
		SpeedKnots: 12,
		pos:        geo.NewPoint(lat, lon),
		clock:      start.UTC(),
	}
}

// Next returns the next sentence without line terminator and advances the
// track by one second.
func (m *MockTrack) Next() string {
	status := "A"
	if m.VoidEvery > 0 && m.n%m.VoidEvery == m.VoidEvery-1 {
		status = "V"
	}
	payload := fmt.Sprintf("%s,%s,%s,%s,%s,%.1f,%.1f,%s,,",
		m.SentenceID,
		m.clock.Format("150405"),
		status,
		degreeMinutes(m.pos.Lat(), 2, "N", "S"),
		degreeMinutes(m.pos.Lng(), 3, "E", "W"),
		m.SpeedKnots,
		m.bearing,
		m.clock.Format("020106"),
	)

	km := m.SpeedKnots * 1.852 / 3600
	m.pos = m.pos.PointAtDistanceAndBearing(km, m.bearing)
	m.bearing = math.Mod(m.bearing+3, 360)
	m.clock = m.clock.Add(time.Second)
	m.n++
	return gps.Sentence(payload)
}

// degreeMinutes renders v as the NMEA ddmm.mmmm field plus hemisphere.
func degreeMinutes(v float64, degDigits int, pos, neg string) string {
	hemi := pos
	if v < 0 {
		hemi = neg
		v = -v
	}
	// work in 1e-4 minutes so rounding cannot produce 60 minutes
	total := int64(math.Round(v * 60 * 10000))
	deg := total / (60 * 10000)
	rem := total % (60 * 10000)
	return fmt.Sprintf("%0*d%02d.%04d,%s", degDigits, deg, rem/10000, rem%10000, hemi)
}
