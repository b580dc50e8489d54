package capture

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// Sentinel errors for frame sources.
var (
	// ErrSourceClosed is returned once a source can produce no more frames.
	ErrSourceClosed = errors.New("capture: source closed")

	// ErrNoFrame is returned when a read produced no image this time.
	ErrNoFrame = errors.New("capture: no frame")
)

// Source produces RGBA frames.
type Source interface {
	// Read fills dst with the next frame as 8-bit RGBA.
	Read(dst *gocv.Mat) error

	// Close releases resources
	Close() error
}

// DeviceSource reads from a camera, video file or stream through OpenCV.
type DeviceSource struct {
	vc     *gocv.VideoCapture
	raw    gocv.Mat
	mu     sync.Mutex
	closed bool
}

// OpenDevice opens device, which is either a camera index ("0") or a
// path/URL understood by OpenCV. Width, height and fps are requests; the
// driver may pick the closest mode it supports.
func OpenDevice(device string, width, height, fps int) (*DeviceSource, error) {
	var id interface{} = device
	if n, err := strconv.Atoi(device); err == nil {
		id = n
	}

	vc, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("open capture %q: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open capture %q: device not available", device)
	}

	if width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	if fps > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}

	return &DeviceSource{
		vc:  vc,
		raw: gocv.NewMat(),
	}, nil
}

// Read grabs the next BGR frame and converts it to RGBA.
func (s *DeviceSource) Read(dst *gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSourceClosed
	}
	if ok := s.vc.Read(&s.raw); !ok {
		return ErrSourceClosed
	}
	if s.raw.Empty() {
		return ErrNoFrame
	}
	return toRGBA(s.raw, dst)
}

// Close releases the capture device.
func (s *DeviceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.raw.Close()
	return s.vc.Close()
}

// ImageSource replays one still image on every read.
type ImageSource struct {
	img    gocv.Mat
	mu     sync.Mutex
	closed bool
}

// LoadImage reads an image file as an ImageSource.
func LoadImage(path string) (*ImageSource, error) {
	raw := gocv.IMRead(path, gocv.IMReadUnchanged)
	defer raw.Close()
	if raw.Empty() {
		return nil, fmt.Errorf("load image %q: unreadable or empty", path)
	}

	img := gocv.NewMat()
	if err := toRGBA(raw, &img); err != nil {
		img.Close()
		return nil, fmt.Errorf("load image %q: %w", path, err)
	}
	return &ImageSource{img: img}, nil
}

// NewImageSource replays a copy of an RGBA frame.
func NewImageSource(rgba gocv.Mat) (*ImageSource, error) {
	if rgba.Empty() {
		return nil, ErrNoFrame
	}
	if rgba.Type() != gocv.MatTypeCV8UC4 {
		return nil, fmt.Errorf("image source: want 8-bit RGBA, got type %v", rgba.Type())
	}
	return &ImageSource{img: rgba.Clone()}, nil
}

// Read copies the image into dst.
func (s *ImageSource) Read(dst *gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSourceClosed
	}
	s.img.CopyTo(dst)
	return nil
}

// Close releases the image.
func (s *ImageSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		s.img.Close()
	}
	return nil
}

// toRGBA converts an OpenCV-native (BGR ordered) image to RGBA.
func toRGBA(src gocv.Mat, dst *gocv.Mat) error {
	switch src.Type() {
	case gocv.MatTypeCV8UC4:
		gocv.CvtColor(src, dst, gocv.ColorBGRAToRGBA)
	case gocv.MatTypeCV8UC3:
		gocv.CvtColor(src, dst, gocv.ColorBGRToRGBA)
	case gocv.MatTypeCV8UC1:
		gocv.CvtColor(src, dst, gocv.ColorGrayToRGBA)
	default:
		return fmt.Errorf("unsupported image type %v", src.Type())
	}
	return nil
}

// SaveImage writes an RGBA frame to path; the format follows the extension.
func SaveImage(path string, rgba gocv.Mat) error {
	if rgba.Type() != gocv.MatTypeCV8UC4 {
		return fmt.Errorf("save image %q: want 8-bit RGBA, got type %v", path, rgba.Type())
	}

	bgra := gocv.NewMat()
	defer bgra.Close()
	gocv.CvtColor(rgba, &bgra, gocv.ColorRGBAToBGRA)

	if !gocv.IMWrite(path, bgra) {
		return fmt.Errorf("save image %q: write failed", path)
	}
	return nil
}
