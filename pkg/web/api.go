package web

import "time"

// Frame status values reported by /api/frame.
const (
	StatusSuccess = "success"
	StatusNoFrame = "no_frame"
	StatusError   = "error"
)

// FrameResponse is the body of GET /api/frame.
type FrameResponse struct {
	ID               string     `json:"id,omitempty"`
	Frame            *string    `json:"frame"` // data:image/jpeg;base64,...
	FPS              float64    `json:"fps"`
	Resolution       string     `json:"resolution"`
	Timestamp        time.Time  `json:"timestamp"`
	FileSize         int        `json:"fileSize"`
	LastModified     *time.Time `json:"lastModified"`
	ProcessingTimeMs float64    `json:"processingTimeMs"`
	Effect           string     `json:"effect,omitempty"`
	Effects          []string   `json:"effects"`
	Status           string     `json:"status"`
	Message          string     `json:"message,omitempty"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Server    string    `json:"server"`
	Version   string    `json:"version"`
}

// MemoryUsage is a summary of runtime.MemStats.
type MemoryUsage struct {
	Alloc     uint64 `json:"alloc"`
	HeapAlloc uint64 `json:"heapAlloc"`
	Sys       uint64 `json:"sys"`
	NumGC     uint32 `json:"numGC"`
}

// StatsResponse is the body of GET /api/stats and of /ws/stats messages.
type StatsResponse struct {
	FrameAvailable   bool        `json:"frameAvailable"`
	Frames           uint64      `json:"frames"`
	FPS              float64     `json:"fps"`
	ProcessingTimeMs float64     `json:"processingTimeMs"`
	Resolution       string      `json:"resolution"`
	ServerUptime     float64     `json:"serverUptime"` // seconds
	Timestamp        time.Time   `json:"timestamp"`
	Endpoints        []string    `json:"endpoints"`
	Viewers          int         `json:"viewers"`
	MemoryUsage      MemoryUsage `json:"memoryUsage"`
}

// ConfigResponse is the body of GET/POST /api/config.
type ConfigResponse struct {
	Config       map[string]interface{} `json:"config"`
	Capabilities map[string]interface{} `json:"capabilities"`
}

// Endpoints lists the API routes.
var Endpoints = []string{
	"/api/frame",
	"/api/health",
	"/api/stats",
	"/api/config",
	"/frame.jpg",
	"/ws/frames",
	"/ws/stats",
}

// FrameDataURL prefix for base64 frames.
const FrameDataURL = "data:image/jpeg;base64,"
