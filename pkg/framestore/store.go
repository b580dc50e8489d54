// Package framestore keeps the most recent processed frame and optionally
// mirrors it to disk for viewers that poll a file.
package framestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/teslashibe/go-edgeview/pkg/capture"
)

// fpsWindow is the period over which the frame rate is measured.
const fpsWindow = time.Second

// Stats summarises the store contents.
type Stats struct {
	FrameAvailable bool          `json:"frame_available"`
	Frames         uint64        `json:"frames"`
	FPS            float64       `json:"fps"`
	LastFrameAt    time.Time     `json:"last_frame_at"`
	LastProcessing time.Duration `json:"last_processing"`
	Resolution     string        `json:"resolution"`
}

// Store holds the latest frame. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	latest capture.Frame
	has    bool
	frames uint64
	recent []time.Time

	path    string
	persist bool
	now     func() time.Time
}

// New creates a store. When path is non-empty, frames are written there
// while persistence is enabled.
func New(path string) *Store {
	return &Store{
		path:    path,
		persist: path != "",
		now:     time.Now,
	}
}

// Path returns the persistence path.
func (s *Store) Path() string {
	return s.path
}

// SetPersist toggles writing frames to disk.
func (s *Store) SetPersist(on bool) {
	s.mu.Lock()
	s.persist = on && s.path != ""
	s.mu.Unlock()
}

// Put records f as the latest frame and, if enabled, writes it to disk.
// The in-memory frame is updated even when the write fails.
func (s *Store) Put(f capture.Frame) error {
	s.mu.Lock()
	s.latest = f
	s.has = true
	s.frames++

	now := s.now()
	s.recent = append(s.recent, now)
	cut := 0
	for cut < len(s.recent) && now.Sub(s.recent[cut]) > fpsWindow {
		cut++
	}
	s.recent = s.recent[cut:]

	persist, path := s.persist, s.path
	s.mu.Unlock()

	if persist {
		if err := writeAtomic(path, f.JPEG); err != nil {
			return fmt.Errorf("framestore: persist frame: %w", err)
		}
	}
	return nil
}

// Latest returns the most recent frame.
func (s *Store) Latest() (capture.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.has
}

// Stats returns counters for the store.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		FrameAvailable: s.has,
		Frames:         s.frames,
		FPS:            s.fpsLocked(),
	}
	if s.has {
		st.LastFrameAt = s.latest.CapturedAt
		st.LastProcessing = s.latest.ProcessingTime
		st.Resolution = s.latest.Resolution()
	}
	return st
}

// FPS returns the number of frames stored during the last second.
func (s *Store) FPS() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fpsLocked()
}

func (s *Store) fpsLocked() float64 {
	now := s.now()
	n := 0
	for _, t := range s.recent {
		if now.Sub(t) <= fpsWindow {
			n++
		}
	}
	return float64(n) / fpsWindow.Seconds()
}

// writeAtomic replaces path with data so readers never see a partial file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".frame-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	// CreateTemp uses 0600; the frame is read by other processes
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
