// Package capture produces raster frames on demand from a camera device,
// a video file, or a network stream.
package capture

import (
	"context"
	"image"
	"time"
)

// Frame is one raster image grabbed from a source. Frames are ephemeral:
// the capture loop creates one per tick and discards it when the tick ends.
type Frame struct {
	Image      image.Image
	Width      int
	Height     int
	CapturedAt time.Time
}

// Source is anything that can produce a frame on demand. Ready reports
// whether the source can produce a frame right now; callers must check it
// before Grab and skip the cycle when it returns false (a camera that has
// not warmed up yet reports 0x0 dimensions and is not ready).
type Source interface {
	Ready() bool
	Grab(ctx context.Context) (*Frame, error)
	Close() error
}
