package edge

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// Sentinel errors for frame processing.
var (
	// ErrEmptyInput is reported by Validate when the input has zero rows or
	// columns. Process treats it as a no-op rather than a failure.
	ErrEmptyInput = errors.New("edge: empty input buffer")

	// ErrNilBuffer is returned when either buffer reference is nil or closed.
	ErrNilBuffer = errors.New("edge: nil buffer")

	// ErrInvalidFormat is returned when the input is not 8-bit RGBA.
	ErrInvalidFormat = errors.New("edge: invalid input format")

	// ErrAllocation is returned when the output buffer could not be sized
	// to hold the result.
	ErrAllocation = errors.New("edge: output allocation failed")

	// ErrUnknownHandle is returned when a handle is not registered.
	ErrUnknownHandle = errors.New("edge: unknown handle")

	// ErrInvalidConfig is returned for out of range thresholds.
	ErrInvalidConfig = errors.New("edge: invalid config")
)

// FormatError describes an input buffer with an unsupported layout.
type FormatError struct {
	Channels int
	Type     gocv.MatType
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("edge: invalid input format: %d channel(s), type %v (want 8-bit RGBA)", e.Channels, e.Type)
}

// Unwrap returns ErrInvalidFormat so callers can match with errors.Is.
func (e *FormatError) Unwrap() error {
	return ErrInvalidFormat
}
