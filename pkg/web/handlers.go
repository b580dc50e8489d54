package web

import (
	"encoding/base64"
	"encoding/json"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-edgeview/pkg/camera"
	"github.com/teslashibe/go-edgeview/pkg/effects"
	"github.com/teslashibe/go-edgeview/pkg/hub"
)

// handleFrame returns the latest frame as a base64 data URL
func (s *Server) handleFrame(c *fiber.Ctx) error {
	resp := FrameResponse{
		Resolution: "0x0",
		Timestamp:  time.Now().UTC(),
		Effects:    []string{},
	}

	frame, ok := s.store.Latest()
	if !ok {
		resp.Status = StatusNoFrame
		resp.Message = "No processed frame available yet. Start the capture pipeline first."
		return c.JSON(resp)
	}

	data := FrameDataURL + base64.StdEncoding.EncodeToString(frame.JPEG)
	modified := frame.CapturedAt.UTC()

	resp.ID = frame.ID.String()
	resp.Frame = &data
	resp.FPS = s.store.FPS()
	resp.Resolution = frame.Resolution()
	resp.FileSize = len(frame.JPEG)
	resp.LastModified = &modified
	resp.ProcessingTimeMs = float64(frame.ProcessingTime) / float64(time.Millisecond)
	resp.Effect = frame.Effect
	resp.Effects = effects.Names()
	resp.Status = StatusSuccess
	return c.JSON(resp)
}

// handleFrameJPEG returns the latest frame as image/jpeg
func (s *Server) handleFrameJPEG(c *fiber.Ctx) error {
	frame, ok := s.store.Latest()
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no processed frame available")
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderLastModified, frame.CapturedAt.UTC().Format(time.RFC1123))
	return c.Send(frame.JPEG)
}

// handleHealth reports liveness
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Server:    ServerName,
		Version:   ServerVersion,
	})
}

// handleStats returns pipeline and server statistics
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.stats())
}

func (s *Server) stats() StatsResponse {
	st := s.store.Stats()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return StatsResponse{
		FrameAvailable:   st.FrameAvailable,
		Frames:           st.Frames,
		FPS:              st.FPS,
		ProcessingTimeMs: float64(st.LastProcessing) / float64(time.Millisecond),
		Resolution:       st.Resolution,
		ServerUptime:     time.Since(s.started).Seconds(),
		Timestamp:        time.Now().UTC(),
		Endpoints:        Endpoints,
		Viewers:          s.frameHub.ClientCount(),
		MemoryUsage: MemoryUsage{
			Alloc:     mem.Alloc,
			HeapAlloc: mem.HeapAlloc,
			Sys:       mem.Sys,
			NumGC:     mem.NumGC,
		},
	}
}

// handleGetConfig returns the capture configuration
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	if s.cameras == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "capture config not available")
	}
	return c.JSON(ConfigResponse{
		Config:       s.cameras.GetConfigJSON(),
		Capabilities: camera.Capabilities(),
	})
}

// handleUpdateConfig applies a partial update or preset
func (s *Server) handleUpdateConfig(c *fiber.Ctx) error {
	if s.cameras == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "capture config not available")
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
	if len(params) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no parameters given")
	}

	if err := s.cameras.UpdateConfig(params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	s.logger.Info("capture config updated", "params", params)
	return c.JSON(ConfigResponse{
		Config:       s.cameras.GetConfigJSON(),
		Capabilities: camera.Capabilities(),
	})
}

// handleFramesWS streams JPEG frames, starting with the latest one
func (s *Server) handleFramesWS(c *websocket.Conn) {
	var initial []hub.Message
	if frame, ok := s.store.Latest(); ok {
		initial = append(initial, hub.NewBinaryMessage(frame.JPEG))
	}
	hub.NewClient(s.frameHub, c, initial...).Run()
}

// handleStatsWS streams stats, starting with a snapshot
func (s *Server) handleStatsWS(c *websocket.Conn) {
	var initial []hub.Message
	if data, err := json.Marshal(s.stats()); err == nil {
		initial = append(initial, hub.NewJSONMessage(data))
	}
	hub.NewClient(s.statsHub, c, initial...).Run()
}
