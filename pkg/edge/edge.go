// Package edge turns camera frames into displayable edge maps.
//
// A frame is reduced to a single intensity channel, run through Canny edge
// detection and expanded back to RGBA so the result can be shown directly
// as a color image. The heavy lifting is done by OpenCV through gocv; this
// package owns the buffer contract around those calls.
package edge

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// Canny hysteresis thresholds used by the camera bridge.
const (
	LowThreshold  = 80
	HighThreshold = 150
)

// Config holds the processor parameters.
type Config struct {
	LowThreshold  float32 // Weak edge threshold
	HighThreshold float32 // Strong edge threshold

	// RestoreColor expands the edge map back to 4 channels (alpha 255).
	// When false the output is the raw 1-channel edge map.
	RestoreColor bool

	// Strict rejects anything but 8-bit RGBA input. When false, 8-bit gray
	// and RGB frames are accepted too.
	Strict bool
}

// DefaultConfig returns the thresholds and layout used on device.
func DefaultConfig() Config {
	return Config{
		LowThreshold:  LowThreshold,
		HighThreshold: HighThreshold,
		RestoreColor:  true,
		Strict:        true,
	}
}

// Validate checks the thresholds.
func (c Config) Validate() error {
	if c.LowThreshold < 0 || c.HighThreshold < 0 {
		return fmt.Errorf("%w: thresholds must be non-negative (low=%v high=%v)", ErrInvalidConfig, c.LowThreshold, c.HighThreshold)
	}
	if c.LowThreshold > c.HighThreshold {
		return fmt.Errorf("%w: low threshold %v above high threshold %v", ErrInvalidConfig, c.LowThreshold, c.HighThreshold)
	}
	return nil
}

// Processor runs the gray → Canny → RGBA transform.
// A Processor has no per-call state and may be shared between goroutines,
// but a given buffer pair must not be processed concurrently.
type Processor struct {
	config Config
}

// New creates a processor after validating cfg.
func New(cfg Config) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Processor{config: cfg}, nil
}

// Config returns the processor configuration.
func (p *Processor) Config() Config {
	return p.config
}

// Validate reports whether in can be processed.
func (p *Processor) Validate(in *gocv.Mat) error {
	if released(in) {
		return ErrNilBuffer
	}
	if in.Empty() || in.Rows() == 0 || in.Cols() == 0 {
		return ErrEmptyInput
	}

	switch in.Type() {
	case gocv.MatTypeCV8UC4:
		return nil
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3:
		if !p.config.Strict {
			return nil
		}
	}
	return &FormatError{Channels: in.Channels(), Type: in.Type()}
}

// Process writes the edge map of in into out.
//
// An empty input leaves out untouched and returns nil. out is reallocated
// as needed; on success it has the same size as in and, with RestoreColor,
// exactly 4 channels. Intermediate buffers never outlive the call.
//
// Running Process on its own output does not reproduce it: the second pass
// only finds the borders of the one-pixel edge lines.
func (p *Processor) Process(in, out *gocv.Mat) error {
	if released(out) {
		return ErrNilBuffer
	}
	if err := p.Validate(in); err != nil {
		if errors.Is(err, ErrEmptyInput) {
			return nil
		}
		return err
	}

	gray := gocv.NewMat()
	defer gray.Close()
	toGray(*in, &gray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, p.config.LowThreshold, p.config.HighThreshold)

	result := edges
	wantType := gocv.MatTypeCV8UC1
	if p.config.RestoreColor {
		rgba := gocv.NewMat()
		defer rgba.Close()
		gocv.CvtColor(edges, &rgba, gocv.ColorGrayToRGBA)
		result = rgba
		wantType = gocv.MatTypeCV8UC4
	}

	result.CopyTo(out)
	return checkOutput(*in, *out, wantType)
}

// checkOutput verifies that out was (re)allocated to the size of in with
// the wanted type.
func checkOutput(in, out gocv.Mat, want gocv.MatType) error {
	if out.Empty() || out.Rows() != in.Rows() || out.Cols() != in.Cols() || out.Type() != want {
		return fmt.Errorf("%w: want %dx%d type %v, got %dx%d type %v",
			ErrAllocation, in.Cols(), in.Rows(), want, out.Cols(), out.Rows(), out.Type())
	}
	return nil
}

// released reports whether m has no native buffer behind it: a nil
// reference, a zero Mat or one that has been closed.
func released(m *gocv.Mat) bool {
	return m == nil || m.Ptr() == nil
}

// toGray reduces src to one luma channel.
func toGray(src gocv.Mat, dst *gocv.Mat) {
	switch src.Channels() {
	case 4:
		gocv.CvtColor(src, dst, gocv.ColorRGBAToGray)
	case 3:
		gocv.CvtColor(src, dst, gocv.ColorRGBToGray)
	default:
		src.CopyTo(dst)
	}
}

var defaultProcessor = &Processor{config: DefaultConfig()}

// ProcessFrame runs the default processor (thresholds 80/150, RGBA output)
// on a caller-owned buffer pair.
func ProcessFrame(in, out *gocv.Mat) error {
	return defaultProcessor.Process(in, out)
}
