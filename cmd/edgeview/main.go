// Edge viewer - live Canny edge detection from a camera
//
// Captures frames, extracts edges and serves them to the web viewer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-edgeview/internal/config"
	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/camera"
	"github.com/teslashibe/go-edgeview/pkg/capture"
	"github.com/teslashibe/go-edgeview/pkg/framestore"
	"github.com/teslashibe/go-edgeview/pkg/web"
)

type options struct {
	port      string
	staticDir string
	framePath string
	image     string
	logLevel  string
	camera    camera.Config
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(2)
	}
	log.Init(opts.logLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("edgeview stopped", "error", err)
		os.Exit(1)
	}
	log.Info("goodbye")
}

func parseFlags() (options, error) {
	def := camera.DefaultConfig()

	port := flag.String("port", config.Port(config.DefaultPort), "HTTP port for the viewer")
	staticDir := flag.String("static", config.StaticDir(config.DefaultStaticDir), "Directory with viewer files (empty to disable)")
	framePath := flag.String("frame-path", config.FramePath(config.DefaultFramePath), "Where -save writes the latest frame")
	save := flag.Bool("save", false, "Write every processed frame to -frame-path")
	device := flag.String("device", config.Device(config.DefaultDevice), "Camera index, video file or stream URL")
	image := flag.String("image", "", "Replay a still image instead of opening a camera")
	preset := flag.String("preset", "", "Capture preset: "+fmt.Sprint(camera.PresetNames()))
	width := flag.Int("width", 0, "Capture width (0 = preset)")
	height := flag.Int("height", 0, "Capture height (0 = preset)")
	fps := flag.Int("fps", config.Int("EDGEVIEW_FPS", 0), "Frames per second (0 = preset)")
	low := flag.Float64("low", def.LowThreshold, "Canny low threshold")
	high := flag.Float64("high", def.HighThreshold, "Canny high threshold")
	effect := flag.String("effect", def.Effect, "Display effect: normal, invert, grayscale, sepia")
	logLevel := flag.String("log-level", config.LogLevel(), "Log level: debug, info, warn, error")
	flag.Parse()

	cfg := def
	if *preset != "" {
		p := camera.GetPreset(*preset)
		if p == nil {
			return options{}, fmt.Errorf("unknown preset %q", *preset)
		}
		cfg = *p
	}

	// Explicit flags override the preset
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "low":
			cfg.LowThreshold = *low
		case "high":
			cfg.HighThreshold = *high
		case "effect":
			cfg.Effect = *effect
		}
	})
	cfg.Device = *device
	cfg.SaveFrames = *save
	if *width > 0 {
		cfg.Width = *width
	}
	if *height > 0 {
		cfg.Height = *height
	}
	if *fps > 0 {
		cfg.Framerate = *fps
	}

	return options{
		port:      *port,
		staticDir: *staticDir,
		framePath: *framePath,
		image:     *image,
		logLevel:  *logLevel,
		camera:    cfg,
	}, nil
}

func run(ctx context.Context, opts options) error {
	cameras, err := camera.NewManager(opts.camera)
	if err != nil {
		return err
	}
	cfg := cameras.GetConfig()

	source, err := openSource(opts.image, cfg)
	if err != nil {
		return err
	}

	store := framestore.New(opts.framePath)
	store.SetPersist(cfg.SaveFrames)

	webCfg := web.DefaultConfig()
	webCfg.Port = opts.port
	webCfg.StaticDir = opts.staticDir
	server := web.NewServer(webCfg, store, cameras)

	pipeline, err := capture.NewPipeline(source, cfg, server.PublishFrame)
	if err != nil {
		source.Close()
		return err
	}
	defer pipeline.Close()

	// A replayed image has no device to reopen
	var open capture.OpenFunc
	if opts.image == "" {
		open = capture.OpenDeviceFunc
	}
	cameras.OnConfigChange = func(c camera.Config) error {
		if err := pipeline.Apply(cameras.GetConfig(), c, open); err != nil {
			return err
		}
		store.SetPersist(c.SaveFrames)
		return nil
	}

	log.Info("edgeview starting",
		"source", sourceName(opts.image, cfg.Device),
		"resolution", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"fps", cfg.Framerate,
		"thresholds", fmt.Sprintf("%v/%v", cfg.LowThreshold, cfg.HighThreshold),
		"effect", cfg.Effect)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- server.Run(ctx) }()
	go func() { errCh <- pipeline.Run(ctx) }()

	// First component to stop takes the other one down
	first := <-errCh
	cancel()
	second := <-errCh

	if first != nil && !errors.Is(first, context.Canceled) {
		return first
	}
	if second != nil && !errors.Is(second, context.Canceled) {
		return second
	}
	return nil
}

func openSource(image string, cfg camera.Config) (capture.Source, error) {
	if image != "" {
		return capture.LoadImage(image)
	}
	return capture.OpenDeviceFunc(cfg)
}

func sourceName(image, device string) string {
	if image != "" {
		return "image:" + image
	}
	return "device:" + device
}
