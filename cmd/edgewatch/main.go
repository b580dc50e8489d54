// edgewatch follows an edge viewer server and keeps the latest frame on
// disk, either by polling /api/frame or by streaming /ws/frames.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/teslashibe/go-edgeview/internal/config"
	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/viewer"
)

func main() {
	server := flag.String("server", config.ServerURL("localhost", config.Port(config.DefaultPort)), "Viewer server URL")
	mode := flag.String("mode", "stream", "poll or stream")
	out := flag.String("out", "latest_frame.jpg", "Where to write the latest frame")
	interval := flag.Duration("interval", 2*time.Second, "Poll interval")
	logLevel := flag.String("log-level", config.LogLevel(), "Log level")
	flag.Parse()

	log.Init(*logLevel)

	client, err := viewer.New(*server)
	if err != nil {
		log.Error("invalid server", "error", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		log.Error("server not reachable", "server", *server, "error", err)
		os.Exit(1)
	}
	log.Info("connected", "server", health.Server, "version", health.Version)

	switch *mode {
	case "poll":
		err = poll(ctx, client, *out, *interval)
	case "stream":
		err = client.Stream(ctx, func(jpeg []byte) error {
			return writeFrame(*out, jpeg)
		})
	default:
		log.Error("unknown mode", "mode", *mode)
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("watch stopped", "error", err)
		os.Exit(1)
	}
}

func poll(ctx context.Context, client *viewer.Client, out string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastID string
	for {
		resp, jpeg, err := client.Frame(ctx)
		switch {
		case errors.Is(err, viewer.ErrNoFrame):
			log.Info("waiting for processed frame")
		case err != nil:
			log.Warn("poll failed", "error", err)
		case resp.ID != lastID:
			lastID = resp.ID
			if err := writeFrame(out, jpeg); err != nil {
				return err
			}
			log.Info("frame updated", "resolution", resp.Resolution, "fps", resp.FPS, "bytes", len(jpeg))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func writeFrame(path string, jpeg []byte) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, jpeg, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
