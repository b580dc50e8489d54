package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/camera"
	"github.com/teslashibe/go-edgeview/pkg/edge"
	"github.com/teslashibe/go-edgeview/pkg/effects"
	"gocv.io/x/gocv"
)

// ErrClosed is returned by Step after Close.
var ErrClosed = errors.New("capture: pipeline closed")

// ErrFixedSource is returned by Apply when the device or resolution
// changes but the pipeline has no way to reopen its source.
var ErrFixedSource = errors.New("capture: source cannot be changed")

// OpenFunc opens a frame source for cfg.
type OpenFunc func(cfg camera.Config) (Source, error)

// OpenDeviceFunc opens cfg.Device at the configured resolution and rate.
func OpenDeviceFunc(cfg camera.Config) (Source, error) {
	src, err := OpenDevice(cfg.Device, cfg.Width, cfg.Height, cfg.Framerate)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// Pipeline reads frames from a Source, extracts edges, applies the display
// effect and hands JPEG frames to a Sink.
type Pipeline struct {
	source Source
	sink   Sink
	logger *slog.Logger

	// Settings, swapped by Configure
	mu        sync.RWMutex
	processor *edge.Processor
	effect    effects.Effect
	quality   int
	interval  time.Duration

	// Reused buffers, guarded by bufMu
	bufMu   sync.Mutex
	frame   gocv.Mat
	edges   gocv.Mat
	display gocv.Mat
	bgr     gocv.Mat
	closed  bool
}

// NewPipeline creates a pipeline using cfg for processing and pacing.
// sink may be nil.
func NewPipeline(src Source, cfg camera.Config, sink Sink) (*Pipeline, error) {
	if src == nil {
		return nil, errors.New("capture: nil source")
	}

	p := &Pipeline{
		source: src,
		sink:   sink,
		logger: log.Component("capture"),
	}
	if err := p.Configure(cfg); err != nil {
		return nil, err
	}

	p.frame = gocv.NewMat()
	p.edges = gocv.NewMat()
	p.display = gocv.NewMat()
	p.bgr = gocv.NewMat()
	return p, nil
}

// Configure applies new processing settings. It is safe to call while Run
// is active and is suitable as a camera.Manager OnConfigChange callback.
// Source settings (device, resolution) are not changed here.
func (p *Pipeline) Configure(cfg camera.Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("capture: invalid config: %v", errs)
	}

	processor, err := edge.New(cfg.EdgeConfig())
	if err != nil {
		return err
	}
	effect, err := effects.Parse(cfg.Effect)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.processor = processor
	p.effect = effect
	p.quality = cfg.Quality
	p.interval = time.Second / time.Duration(cfg.Framerate)
	p.mu.Unlock()

	p.logger.Debug("pipeline configured",
		"low", cfg.LowThreshold, "high", cfg.HighThreshold,
		"effect", effect, "fps", cfg.Framerate)
	return nil
}

// SetSource replaces the frame source and closes the previous one.
// On error the pipeline keeps its current source and src is not closed.
func (p *Pipeline) SetSource(src Source) error {
	if src == nil {
		return errors.New("capture: nil source")
	}

	p.bufMu.Lock()
	defer p.bufMu.Unlock()

	if p.closed {
		return ErrClosed
	}
	old := p.source
	p.source = src
	if err := old.Close(); err != nil {
		p.logger.Warn("close previous source", "error", err)
	}
	return nil
}

// Apply moves the pipeline from prev to next. Processing settings are
// swapped in place; a device or resolution change reopens the source
// through open. With a nil open such changes fail with ErrFixedSource.
// On error the pipeline is left running with prev.
func (p *Pipeline) Apply(prev, next camera.Config, open OpenFunc) error {
	if !prev.SourceChanged(next) {
		return p.Configure(next)
	}
	if open == nil {
		return fmt.Errorf("%w: device and resolution are fixed for this source", ErrFixedSource)
	}

	src, err := open(next)
	if err != nil {
		return fmt.Errorf("reopen source: %w", err)
	}
	if err := p.Configure(next); err != nil {
		src.Close()
		return err
	}
	if err := p.SetSource(src); err != nil {
		src.Close()
		if rerr := p.Configure(prev); rerr != nil {
			p.logger.Warn("restore previous config", "error", rerr)
		}
		return err
	}

	p.logger.Info("source reopened", "device", next.Device,
		"resolution", fmt.Sprintf("%dx%d", next.Width, next.Height))
	return nil
}

// Interval returns the current frame interval.
func (p *Pipeline) Interval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.interval
}

// Step reads, processes and encodes one frame. The sink is not called.
func (p *Pipeline) Step() (Frame, error) {
	p.mu.RLock()
	processor, effect, quality := p.processor, p.effect, p.quality
	p.mu.RUnlock()

	p.bufMu.Lock()
	defer p.bufMu.Unlock()

	if p.closed {
		return Frame{}, ErrClosed
	}

	capturedAt := time.Now()
	if err := p.source.Read(&p.frame); err != nil {
		return Frame{}, err
	}
	if p.frame.Empty() {
		return Frame{}, ErrNoFrame
	}

	start := time.Now()
	if err := processor.Process(&p.frame, &p.edges); err != nil {
		return Frame{}, fmt.Errorf("process frame: %w", err)
	}
	if err := effects.Apply(effect, p.edges, &p.display); err != nil {
		return Frame{}, fmt.Errorf("apply effect: %w", err)
	}
	elapsed := time.Since(start)

	data, err := p.encode(quality)
	if err != nil {
		return Frame{}, err
	}

	return Frame{
		ID:             uuid.New(),
		JPEG:           data,
		Width:          p.display.Cols(),
		Height:         p.display.Rows(),
		Effect:         string(effect),
		CapturedAt:     capturedAt,
		ProcessingTime: elapsed,
	}, nil
}

// encode converts the display buffer to JPEG. Callers hold bufMu.
func (p *Pipeline) encode(quality int) ([]byte, error) {
	gocv.CvtColor(p.display, &p.bgr, gocv.ColorRGBAToBGR)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, p.bgr, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	if len(data) == 0 {
		return nil, errors.New("encode jpeg: empty output")
	}
	return append([]byte(nil), data...), nil
}

// Run processes frames at the configured rate until ctx is cancelled or
// the source is exhausted. Transient read and processing errors are logged
// and skipped.
func (p *Pipeline) Run(ctx context.Context) error {
	interval := p.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("pipeline started", "interval", interval)
	defer p.logger.Info("pipeline stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if next := p.Interval(); next != interval {
			interval = next
			ticker.Reset(interval)
		}

		frame, err := p.Step()
		switch {
		case err == nil:
			if p.sink != nil {
				p.sink(frame)
			}
		case errors.Is(err, ErrSourceClosed), errors.Is(err, ErrClosed):
			return err
		case errors.Is(err, ErrNoFrame):
			p.logger.Debug("no frame available")
		default:
			p.logger.Warn("frame dropped", "error", err)
		}
	}
}

// Close releases the pipeline buffers and the source.
func (p *Pipeline) Close() error {
	p.bufMu.Lock()
	defer p.bufMu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.frame.Close()
	p.edges.Close()
	p.display.Close()
	p.bgr.Close()
	return p.source.Close()
}
