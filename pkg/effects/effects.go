// Package effects provides the display effects offered by the viewer.
package effects

import (
	"errors"
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// Effect names a display effect applied to an RGBA frame.
type Effect string

// Available effects.
const (
	Normal    Effect = "normal"
	Invert    Effect = "invert"
	Grayscale Effect = "grayscale"
	Sepia     Effect = "sepia"
)

// ErrUnknownEffect is returned for an unrecognised effect name.
var ErrUnknownEffect = errors.New("effects: unknown effect")

// ErrNotRGBA is returned when the source frame is not 8-bit RGBA.
var ErrNotRGBA = errors.New("effects: source must be 8-bit RGBA")

// All returns every effect in display order.
func All() []Effect {
	return []Effect{Normal, Invert, Grayscale, Sepia}
}

// Names returns the display names used by the viewer API.
func Names() []string {
	names := make([]string, 0, 4)
	for _, e := range All() {
		names = append(names, e.DisplayName())
	}
	return names
}

// DisplayName returns the capitalised name shown to users.
func (e Effect) DisplayName() string {
	if e == "" {
		return "Normal"
	}
	return strings.ToUpper(string(e[:1])) + string(e[1:])
}

// Parse returns the effect for name (case-insensitive). Empty means Normal.
func Parse(name string) (Effect, error) {
	switch Effect(strings.ToLower(strings.TrimSpace(name))) {
	case "", Normal:
		return Normal, nil
	case Invert:
		return Invert, nil
	case Grayscale:
		return Grayscale, nil
	case Sepia:
		return Sepia, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEffect, name)
}

// Apply writes src with effect e applied into dst. src must be 8-bit RGBA;
// dst is reallocated as needed and keeps src's alpha channel.
func Apply(e Effect, src gocv.Mat, dst *gocv.Mat) error {
	if src.Type() != gocv.MatTypeCV8UC4 {
		return ErrNotRGBA
	}

	switch e {
	case "", Normal:
		src.CopyTo(dst)
	case Invert:
		invert(src, dst)
	case Grayscale:
		grayscale(src, dst)
	case Sepia:
		sepia(src, dst)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEffect, string(e))
	}
	return nil
}

// invert negates the color channels and keeps alpha.
func invert(src gocv.Mat, dst *gocv.Mat) {
	channels := gocv.Split(src)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()

	for i := 0; i < 3; i++ {
		gocv.BitwiseNot(channels[i], &channels[i])
	}
	gocv.Merge(channels, dst)
}

// grayscale uses BT.601 luma weights, replicated across color channels.
func grayscale(src gocv.Mat, dst *gocv.Mat) {
	channels := gocv.Split(src)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorRGBAToGray)

	gocv.Merge([]gocv.Mat{gray, gray, gray, channels[3]}, dst)
}

// sepiaKernel is the classic sepia tone matrix, extended to pass alpha
// through unchanged.
var sepiaKernel = [4][4]float32{
	{0.393, 0.769, 0.189, 0},
	{0.349, 0.686, 0.168, 0},
	{0.272, 0.534, 0.131, 0},
	{0, 0, 0, 1},
}

func sepia(src gocv.Mat, dst *gocv.Mat) {
	kernel := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV32F)
	defer kernel.Close()
	for r, row := range sepiaKernel {
		for c, v := range row {
			kernel.SetFloatAt(r, c, v)
		}
	}
	gocv.Transform(src, dst, kernel)
}
