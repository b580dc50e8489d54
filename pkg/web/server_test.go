package web

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-edgeview/pkg/camera"
	"github.com/teslashibe/go-edgeview/pkg/capture"
	"github.com/teslashibe/go-edgeview/pkg/framestore"
	"gocv.io/x/gocv"
)

var fakeJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0xFF, 0xD9}

func newTestServer(t *testing.T, staticDir string) (*Server, *framestore.Store, *camera.Manager) {
	t.Helper()
	store := framestore.New("")
	mgr, err := camera.NewManager(camera.DefaultConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cfg := DefaultConfig()
	cfg.StaticDir = staticDir
	return NewServer(cfg, store, mgr), store, mgr
}

func testFrame() capture.Frame {
	return capture.Frame{
		ID:             uuid.New(),
		JPEG:           fakeJPEG,
		Width:          1280,
		Height:         720,
		Effect:         "sepia",
		CapturedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ProcessingTime: 8 * time.Millisecond,
	}
}

func doRequest(t *testing.T, s *Server, method, path string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestHandleHealth(t *testing.T) {
	s, _, _ := newTestServer(t, "")
	resp, body := doRequest(t, s, http.MethodGet, "/api/health", nil)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var h HealthResponse
	if err := json.Unmarshal(body, &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Status != "healthy" || h.Server != ServerName || h.Version != ServerVersion {
		t.Errorf("unexpected health: %+v", h)
	}
}

func TestCORS(t *testing.T) {
	s, _, _ := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://example.com")

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Error("missing CORS header")
	}
}

func TestHandleFrame_NoFrame(t *testing.T) {
	s, _, _ := newTestServer(t, "")
	resp, body := doRequest(t, s, http.MethodGet, "/api/frame", nil)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var fr FrameResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fr.Status != StatusNoFrame || fr.Frame != nil || fr.Resolution != "0x0" {
		t.Errorf("unexpected response: %+v", fr)
	}
	if fr.Message == "" {
		t.Error("expected a message")
	}
}

func TestHandleFrame_Success(t *testing.T) {
	s, store, _ := newTestServer(t, "")
	frame := testFrame()
	store.Put(frame)

	resp, body := doRequest(t, s, http.MethodGet, "/api/frame", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}

	var fr FrameResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fr.Status != StatusSuccess {
		t.Fatalf("status field: got %q", fr.Status)
	}
	if fr.ID != frame.ID.String() {
		t.Errorf("ID: got %q", fr.ID)
	}
	if fr.Resolution != "1280x720" || fr.FileSize != len(fakeJPEG) {
		t.Errorf("resolution/size: %q/%d", fr.Resolution, fr.FileSize)
	}
	if fr.ProcessingTimeMs != 8 {
		t.Errorf("ProcessingTimeMs: got %v", fr.ProcessingTimeMs)
	}
	if fr.LastModified == nil || !fr.LastModified.Equal(frame.CapturedAt) {
		t.Errorf("LastModified: got %v", fr.LastModified)
	}
	if len(fr.Effects) != 4 || fr.Effect != "sepia" {
		t.Errorf("effects: %v / %q", fr.Effects, fr.Effect)
	}

	if fr.Frame == nil || !strings.HasPrefix(*fr.Frame, FrameDataURL) {
		t.Fatalf("frame is not a data URL: %v", fr.Frame)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(*fr.Frame, FrameDataURL))
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	if !bytes.Equal(raw, fakeJPEG) {
		t.Error("frame payload does not match stored JPEG")
	}
}

func TestHandleFrameJPEG(t *testing.T) {
	s, store, _ := newTestServer(t, "")

	resp, _ := doRequest(t, s, http.MethodGet, "/frame.jpg", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("empty store: got %d, want 404", resp.StatusCode)
	}

	store.Put(testFrame())
	for _, path := range []string{"/frame.jpg", "/processed_frame.jpg"} {
		resp, body := doRequest(t, s, http.MethodGet, path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status %d", path, resp.StatusCode)
			continue
		}
		if resp.Header.Get("Content-Type") != "image/jpeg" {
			t.Errorf("%s: content type %q", path, resp.Header.Get("Content-Type"))
		}
		if !bytes.Equal(body, fakeJPEG) {
			t.Errorf("%s: body mismatch", path)
		}
	}
}

func TestHandleStats(t *testing.T) {
	s, store, _ := newTestServer(t, "")
	store.Put(testFrame())

	resp, body := doRequest(t, s, http.MethodGet, "/api/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	var st StatsResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !st.FrameAvailable || st.Frames != 1 {
		t.Errorf("frame counters: %+v", st)
	}
	if st.Resolution != "1280x720" {
		t.Errorf("Resolution: got %q", st.Resolution)
	}
	if len(st.Endpoints) != len(Endpoints) {
		t.Errorf("Endpoints: got %v", st.Endpoints)
	}
	if st.MemoryUsage.Sys == 0 {
		t.Error("memory usage not reported")
	}
}

func TestHandleConfig(t *testing.T) {
	s, _, mgr := newTestServer(t, "")

	resp, body := doRequest(t, s, http.MethodGet, "/api/config", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status: %d", resp.StatusCode)
	}
	var cr ConfigResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cr.Config["low_threshold"] != float64(80) {
		t.Errorf("low_threshold: got %v", cr.Config["low_threshold"])
	}

	resp, body = doRequest(t, s, http.MethodPost, "/api/config",
		[]byte(`{"preset":"sharp","effect":"invert"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST status: %d (%s)", resp.StatusCode, body)
	}
	got := mgr.GetConfig()
	if got.LowThreshold != 120 || got.Effect != "invert" {
		t.Errorf("config not applied: %+v", got)
	}
}

func TestHandleConfig_Errors(t *testing.T) {
	s, _, mgr := newTestServer(t, "")
	before := mgr.GetConfig()

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"width":`},
		{name: "empty", body: `{}`},
		{name: "invalid value", body: `{"quality": 0}`},
		{name: "unknown preset", body: `{"preset":"4k"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doRequest(t, s, http.MethodPost, "/api/config", []byte(tc.body))
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400 (%s)", resp.StatusCode, body)
			}
			var e map[string]string
			if err := json.Unmarshal(body, &e); err != nil || e["status"] != StatusError {
				t.Errorf("error body: %s", body)
			}
		})
	}

	if mgr.GetConfig() != before {
		t.Error("config changed by failed requests")
	}
}

func TestHandleConfig_FixedSource(t *testing.T) {
	s, _, mgr := newTestServer(t, "")

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 255), 16, 16, gocv.MatTypeCV8UC4)
	defer img.Close()
	src, err := capture.NewImageSource(img)
	if err != nil {
		t.Fatalf("NewImageSource: %v", err)
	}
	pipeline, err := capture.NewPipeline(src, mgr.GetConfig(), nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	defer pipeline.Close()

	mgr.OnConfigChange = func(c camera.Config) error {
		return pipeline.Apply(mgr.GetConfig(), c, nil)
	}
	before := mgr.GetConfig()

	resp, body := doRequest(t, s, http.MethodPost, "/api/config", []byte(`{"width":1920,"height":1080}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("resolution change: got %d, want 400 (%s)", resp.StatusCode, body)
	}
	if mgr.GetConfig() != before {
		t.Errorf("rejected resolution was stored: %+v", mgr.GetConfig())
	}

	_, body = doRequest(t, s, http.MethodGet, "/api/config", nil)
	var cr ConfigResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cr.Config["width"] != float64(before.Width) {
		t.Errorf("GET width: got %v, want %d", cr.Config["width"], before.Width)
	}

	resp, body = doRequest(t, s, http.MethodPost, "/api/config", []byte(`{"effect":"sepia"}`))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("effect change: got %d (%s)", resp.StatusCode, body)
	}
	frame, err := pipeline.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if frame.Effect != "sepia" {
		t.Errorf("effect not applied to frames: %q", frame.Effect)
	}
}

func TestHandleConfig_NoManager(t *testing.T) {
	s := NewServer(DefaultConfig(), framestore.New(""), nil)
	resp, _ := doRequest(t, s, http.MethodGet, "/api/config", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("got %d, want 503", resp.StatusCode)
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s, _, _ := newTestServer(t, "")
	for _, path := range []string{"/ws/frames", "/ws/stats"} {
		resp, _ := doRequest(t, s, http.MethodGet, path, nil)
		if resp.StatusCode != http.StatusUpgradeRequired {
			t.Errorf("%s: got %d, want 426", path, resp.StatusCode)
		}
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>viewer</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, _, _ := newTestServer(t, dir)
	resp, body := doRequest(t, s, http.MethodGet, "/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "viewer") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestPublishFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_frame.jpg")
	store := framestore.New(path)
	s := NewServer(DefaultConfig(), store, nil)

	s.PublishFrame(testFrame())

	if _, ok := store.Latest(); !ok {
		t.Fatal("frame not stored")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("frame not persisted: %v", err)
	}
	if !bytes.Equal(data, fakeJPEG) {
		t.Error("persisted frame mismatch")
	}
}
