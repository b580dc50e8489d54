// Package config provides environment-backed defaults for go-edgeview commands.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Defaults used when the environment does not override them.
const (
	DefaultPort      = "3001"
	DefaultDevice    = "0"
	DefaultStaticDir = "./web"
	DefaultFramePath = "processed_frame.jpg"
	DefaultLogLevel  = "info"
)

// Port returns the HTTP port from EDGEVIEW_PORT, or defaultPort.
func Port(defaultPort string) string {
	return env("EDGEVIEW_PORT", defaultPort)
}

// Device returns the capture device from EDGEVIEW_DEVICE, or defaultDevice.
func Device(defaultDevice string) string {
	return env("EDGEVIEW_DEVICE", defaultDevice)
}

// StaticDir returns the static file directory from EDGEVIEW_STATIC.
func StaticDir(defaultDir string) string {
	return env("EDGEVIEW_STATIC", defaultDir)
}

// FramePath returns where processed frames are saved, from EDGEVIEW_FRAME_PATH.
func FramePath(defaultPath string) string {
	return env("EDGEVIEW_FRAME_PATH", defaultPath)
}

// LogLevel returns the log level from LOG_LEVEL.
func LogLevel() string {
	return env("LOG_LEVEL", DefaultLogLevel)
}

// ServerURL returns the viewer base URL for a host and port.
func ServerURL(host, port string) string {
	return fmt.Sprintf("http://%s:%s", host, port)
}

// Int returns an integer from the environment, or def when unset or invalid.
func Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
