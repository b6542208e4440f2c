package sink

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/rmc_logger/internal/gps"
)

type fakePanel struct {
	mu     sync.Mutex
	frames int
	last   image.Image
	err    error
}

func (p *fakePanel) Bounds() image.Rectangle { return image.Rect(0, 0, 128, 64) }

func (p *fakePanel) Draw(_ image.Rectangle, src image.Image, _ image.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames++
	p.last = src
	return p.err
}

func (p *fakePanel) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

func litPixels(img *image1bit.VerticalLSB) int {
	n := 0
	for _, b := range img.Pix {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func TestDisplay_Render(t *testing.T) {
	d := NewDisplay()
	waiting := d.Render()
	assert.Equal(t, image.Rect(0, 0, 128, 64), waiting.Bounds())
	assert.Positive(t, litPixels(waiting))

	require.NoError(t, d.Skip(0, gps.ErrFixNotActive))
	require.NoError(t, d.WriteFix(1, testFix))
	withFix := d.Render()
	assert.NotEqual(t, waiting.Pix, withFix.Pix)

	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.WriteFix(2, testFix), ErrClosed)
	assert.ErrorIs(t, d.Skip(2, nil), ErrClosed)
}

func TestHemisphere(t *testing.T) {
	assert.Equal(t, "48.11730N", hemisphere(testFix.Latitude, "N", "S"))
	assert.Equal(t, "48.11730S", hemisphere(testFix.Latitude.Neg(), "N", "S"))
	assert.Equal(t, "11.51667W", hemisphere(testFix.Longitude.Neg(), "E", "W"))
}

func TestDisplay_Run(t *testing.T) {
	muteLogs(t)
	d := NewDisplay()
	panel := &fakePanel{err: errors.New("i2c nack")}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, panel, time.Millisecond) }()

	require.Eventually(t, func() bool { return panel.count() >= 3 }, 2*time.Second, time.Millisecond,
		"draw errors are logged, not fatal")
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestShowSplash(t *testing.T) {
	panel := &fakePanel{}
	require.NoError(t, ShowSplash(panel))
	img, ok := panel.last.(*image1bit.VerticalLSB)
	require.True(t, ok)
	assert.Positive(t, litPixels(img))
}
