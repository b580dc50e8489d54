// Package web serves the edge viewer: a JSON API for the latest processed
// frame, live websocket feeds and the static viewer page.
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/camera"
	"github.com/teslashibe/go-edgeview/pkg/capture"
	"github.com/teslashibe/go-edgeview/pkg/framestore"
	"github.com/teslashibe/go-edgeview/pkg/hub"
)

// Server identity reported by /api/health.
const (
	ServerName    = "Edge Detection API"
	ServerVersion = "1.0.0"
)

// Config holds server settings.
type Config struct {
	Port          string        // Listen port
	StaticDir     string        // Viewer files; empty disables static serving
	StatsInterval time.Duration // How often /ws/stats pushes an update
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Port:          "3001",
		StaticDir:     "./web",
		StatsInterval: 2 * time.Second,
	}
}

// Server is the viewer web server.
type Server struct {
	app     *fiber.App
	config  Config
	logger  *slog.Logger
	started time.Time

	store   *framestore.Store
	cameras *camera.Manager

	// Hubs for websocket broadcast
	frameHub *hub.Hub
	statsHub *hub.Hub
}

// NewServer creates the server. cameras may be nil, in which case the
// config endpoints report 503.
func NewServer(cfg Config, store *framestore.Store, cameras *camera.Manager) *Server {
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = DefaultConfig().StatsInterval
	}

	s := &Server{
		config:   cfg,
		logger:   log.Component("web"),
		started:  time.Now(),
		store:    store,
		cameras:  cameras,
		frameHub: hub.New("frames"),
		statsHub: hub.New("stats"),
	}

	app := fiber.New(fiber.Config{
		AppName:               ServerName,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	// CORS for viewers served from elsewhere
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/frame", s.handleFrame)
	api.Get("/health", s.handleHealth)
	api.Get("/stats", s.handleStats)
	api.Get("/config", s.handleGetConfig)
	api.Post("/config", s.handleUpdateConfig)

	// Raw JPEG; the second path is what the original viewer page polls
	app.Get("/frame.jpg", s.handleFrameJPEG)
	app.Get("/processed_frame.jpg", s.handleFrameJPEG)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))
	app.Get("/ws/stats", websocket.New(s.handleStatsWS))

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the hubs and stats ticker and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go s.frameHub.Run(ctx)
	go s.statsHub.Run(ctx)
	go s.pushStats(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("viewer listening", "url", "http://localhost:"+s.config.Port)
		errCh <- s.app.Listen(":" + s.config.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// PublishFrame stores f and pushes it to live viewers. It has the shape of
// a capture.Sink.
func (s *Server) PublishFrame(f capture.Frame) {
	if err := s.store.Put(f); err != nil {
		s.logger.Warn("frame not persisted", "error", err)
	}
	if s.frameHub.ClientCount() > 0 {
		s.frameHub.BroadcastBinary(f.JPEG)
	}
}

// pushStats periodically broadcasts stats to /ws/stats viewers.
func (s *Server) pushStats(ctx context.Context) {
	ticker := time.NewTicker(s.config.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.statsHub.ClientCount() == 0 {
				continue
			}
			if err := s.statsHub.BroadcastJSON(s.stats()); err != nil {
				s.logger.Warn("stats broadcast failed", "error", err)
			}
		}
	}
}

// handleError renders every error as JSON.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  StatusError,
		"message": err.Error(),
	})
}
