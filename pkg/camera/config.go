// Package camera provides runtime-configurable capture and processing
// settings for the edge viewer.
package camera

import (
	"github.com/teslashibe/go-edgeview/pkg/edge"
	"github.com/teslashibe/go-edgeview/pkg/effects"
)

// Config holds all capture configuration parameters.
// These can be modified via the config API at runtime.
type Config struct {
	// === Source ===
	// Device is a camera index ("0") or a stream URL / file path.
	Device string `json:"device"`

	// === Resolution ===
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS
	Quality   int `json:"quality"`   // JPEG quality 1-100

	// === Processing ===
	// LowThreshold and HighThreshold are the Canny hysteresis thresholds.
	LowThreshold  float64 `json:"low_threshold"`
	HighThreshold float64 `json:"high_threshold"`

	// Effect is the display effect applied after edge detection.
	// Values: "normal", "invert", "grayscale", "sepia"
	Effect string `json:"effect"`

	// SaveFrames writes every processed frame to the frame path.
	SaveFrames bool `json:"save_frames"`
}

// Limits
const (
	MaxWidth     = 4096
	MaxHeight    = 2160
	MaxFramerate = 60
	MaxThreshold = 1000.0
)

// DefaultConfig returns the recommended configuration.
// 1280x720 at 15 FPS keeps Canny comfortably real-time on a laptop CPU.
func DefaultConfig() Config {
	return Config{
		Device: "0",

		Width:     1280,
		Height:    720,
		Framerate: 15,
		Quality:   85,

		LowThreshold:  edge.LowThreshold,
		HighThreshold: edge.HighThreshold,
		Effect:        string(effects.Normal),

		SaveFrames: false,
	}
}

// LegacyConfig returns the 640x480 preview resolution of the phone app.
func LegacyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device == "" {
		errors = append(errors, "device must not be empty")
	}

	// Resolution
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 4096")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 60")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	// Thresholds
	if c.LowThreshold < 0 || c.LowThreshold > MaxThreshold {
		errors = append(errors, "low_threshold must be between 0 and 1000")
	}
	if c.HighThreshold < 0 || c.HighThreshold > MaxThreshold {
		errors = append(errors, "high_threshold must be between 0 and 1000")
	}
	if c.LowThreshold > c.HighThreshold {
		errors = append(errors, "low_threshold must not exceed high_threshold")
	}

	if _, err := effects.Parse(c.Effect); err != nil {
		errors = append(errors, "effect must be normal, invert, grayscale, or sepia")
	}

	return errors
}

// EdgeConfig returns the processor configuration for these settings.
func (c Config) EdgeConfig() edge.Config {
	cfg := edge.DefaultConfig()
	cfg.LowThreshold = float32(c.LowThreshold)
	cfg.HighThreshold = float32(c.HighThreshold)
	return cfg
}

// SourceChanged reports whether switching from c to next requires the
// capture device to be reopened.
func (c Config) SourceChanged(next Config) bool {
	return c.Device != next.Device || c.Width != next.Width || c.Height != next.Height
}

// Capabilities returns the supported ranges and options.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"max_width":     MaxWidth,
		"max_height":    MaxHeight,
		"max_framerate": MaxFramerate,
		"max_threshold": MaxThreshold,
		"effects":       effects.All(),
		"presets":       PresetNames(),
	}
}
