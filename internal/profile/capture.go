package profile

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/tombury59/PWA-CHAT/internal/media"
)

// FrameSource is a live camera stream: Grab returns the current frame.
type FrameSource interface {
	Grab() (image.Image, error)
	Close() error
}

// countdownSeconds is the visible delay before the frame is taken.
const countdownSeconds = 3

// Camera runs the capture flow: a 3-second countdown, then the current
// frame is grabbed and encoded. The source is released when the camera
// closes, whether the flow captured, was cancelled or failed.
type Camera struct {
	source FrameSource
	onTick func(remaining int)

	// sleep is overridable for tests.
	sleep func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	closed bool
}

// NewCamera wraps a frame source.
func NewCamera(source FrameSource) *Camera {
	return &Camera{
		source: source,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
}

// OnTick registers the countdown display callback.
func (c *Camera) OnTick(fn func(remaining int)) {
	c.onTick = fn
}

// Capture counts down, grabs the frame and returns it as a downscaled data
// URI. The source is always closed before returning, even on cancellation.
func (c *Camera) Capture(ctx context.Context) (string, error) {
	defer c.Close()

	for remaining := countdownSeconds; remaining > 0; remaining-- {
		if c.onTick != nil {
			c.onTick(remaining)
		}
		if err := c.sleep(ctx, time.Second); err != nil {
			return "", err
		}
	}

	frame, err := c.source.Grab()
	if err != nil {
		return "", err
	}
	return media.EncodeDataURI(frame)
}

// Close releases the camera stream. Safe to call more than once.
func (c *Camera) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.source.Close()
}
