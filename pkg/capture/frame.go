// Package capture reads camera frames and runs them through the edge
// processor, producing JPEG frames for the viewer.
package capture

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Frame is a processed, JPEG-encoded frame.
type Frame struct {
	ID             uuid.UUID     `json:"id"`
	JPEG           []byte        `json:"-"`
	Width          int           `json:"width"`
	Height         int           `json:"height"`
	Effect         string        `json:"effect"`
	CapturedAt     time.Time     `json:"captured_at"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// Resolution formats the frame size as "WxH".
func (f Frame) Resolution() string {
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}

// Sink receives every processed frame on the pipeline goroutine.
// The JPEG slice is owned by the frame; sinks must not modify it.
type Sink func(Frame)
