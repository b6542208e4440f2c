// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/rmc_logger/internal/gps"
	"github.com/relabs-tech/rmc_logger/internal/monitoring"
)

// Drawer is the part of *ssd1306.Dev the display loop draws on.
type Drawer interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// Display keeps the latest commit state for a 128x64 OLED panel. Commits only
// update memory; Run pushes frames to the panel at its own pace.
type Display struct {
	mu       sync.RWMutex
	last     gps.Fix
	haveFix  bool
	fixes    int
	skips    int
	lastSkip string
	closed   bool
}

func NewDisplay() *Display { return &Display{} }

func (d *Display) WriteFix(_ uint64, fix gps.Fix) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.last = fix
	d.haveFix = true
	d.fixes++
	return nil
}

func (d *Display) Skip(_ uint64, reason error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.skips++
	d.lastSkip = gps.Reason(reason)
	return nil
}

func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	return nil
}

// Render draws the current state into a fresh 1-bit image.
func (d *Display) Render() *image1bit.VerticalLSB {
	d.mu.RLock()
	fix, haveFix := d.last, d.haveFix
	fixes, skips, lastSkip := d.fixes, d.skips, d.lastSkip
	d.mu.RUnlock()

	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	line := func(y int, s string) {
		drawer.Dot = fixed.P(0, y)
		drawer.DrawString(s)
	}

	if !haveFix {
		line(26, "RMC logger")
		line(39, "Waiting for fix")
		if skips > 0 {
			line(52, fmt.Sprintf("skips %d %s", skips, lastSkip))
		}
		return img
	}

	line(13, fix.Time()+" UTC")
	line(26, hemisphere(fix.Latitude, "N", "S"))
	line(39, hemisphere(fix.Longitude, "E", "W"))
	line(52, fmt.Sprintf("fix %d skip %d", fixes, skips))
	return img
}

// hemisphere renders |c| rounded to 5 decimals followed by its hemisphere.
func hemisphere(c gps.Coordinate, pos, neg string) string {
	dir := pos
	if c.Mantissa < 0 {
		dir = neg
		c = c.Neg()
	}
	return fmt.Sprintf("%.5f%s", c.Float64(), dir)
}

// Run redraws dev every interval until ctx is done.
func (d *Display) Run(ctx context.Context, dev Drawer, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := dev.Draw(dev.Bounds(), d.Render(), image.Point{}); err != nil {
			monitoring.Logf("display: error updating display: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ShowSplash draws the start-up screen.
func ShowSplash(dev Drawer) error {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawString("RMC logger")

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawString("Looking for")

	drawer.Dot = fixed.P(25, 56)
	drawer.DrawString("sats")

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
