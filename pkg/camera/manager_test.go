package camera

import (
	"errors"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(DefaultConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestNewManager_RejectsInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = 0
	if _, err := NewManager(cfg); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestManager_UpdateConfig(t *testing.T) {
	m := newTestManager(t)

	var applied Config
	calls := 0
	m.OnConfigChange = func(cfg Config) error {
		applied = cfg
		calls++
		return nil
	}

	err := m.UpdateConfig(map[string]interface{}{
		"width":          float64(640),
		"height":         float64(480),
		"low_threshold":  float64(50),
		"high_threshold": 120,
		"effect":         "invert",
		"save_frames":    true,
	})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	got := m.GetConfig()
	if got.Width != 640 || got.Height != 480 {
		t.Errorf("resolution: got %dx%d, want 640x480", got.Width, got.Height)
	}
	if got.LowThreshold != 50 || got.HighThreshold != 120 {
		t.Errorf("thresholds: got %v/%v, want 50/120", got.LowThreshold, got.HighThreshold)
	}
	if got.Effect != "invert" || !got.SaveFrames {
		t.Errorf("effect/save: got %q/%v", got.Effect, got.SaveFrames)
	}
	if calls != 1 || applied != got {
		t.Errorf("callback: %d calls, applied %+v", calls, applied)
	}
}

func TestManager_UpdateConfig_Preset(t *testing.T) {
	m := newTestManager(t)
	if err := m.UpdateConfig(map[string]interface{}{"device": "/tmp/clip.mp4"}); err != nil {
		t.Fatalf("set device: %v", err)
	}

	err := m.UpdateConfig(map[string]interface{}{
		"preset":  PresetLowLight,
		"quality": float64(70),
	})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	got := m.GetConfig()
	if got.LowThreshold != 40 || got.HighThreshold != 100 {
		t.Errorf("preset thresholds not applied: %v/%v", got.LowThreshold, got.HighThreshold)
	}
	if got.Quality != 70 {
		t.Errorf("override not applied: quality %d", got.Quality)
	}
	if got.Device != "/tmp/clip.mp4" {
		t.Errorf("preset should keep device, got %q", got.Device)
	}
}

func TestManager_UpdateConfig_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]interface{}
	}{
		{name: "unknown preset", params: map[string]interface{}{"preset": "8k"}},
		{name: "unknown key", params: map[string]interface{}{"zoom": 2}},
		{name: "invalid value", params: map[string]interface{}{"framerate": float64(500)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestManager(t)
			before := m.GetConfig()

			if err := m.UpdateConfig(tc.params); err == nil {
				t.Error("expected error")
			}
			if m.GetConfig() != before {
				t.Error("config changed despite error")
			}
		})
	}
}

func TestManager_CallbackError(t *testing.T) {
	m := newTestManager(t)
	boom := errors.New("boom")
	m.OnConfigChange = func(Config) error { return boom }

	before := m.GetConfig()
	err := m.SetConfig(HD720Config())
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped callback error, got %v", err)
	}
	if m.GetConfig() != before {
		t.Error("rejected config was committed")
	}

	err = m.UpdateConfig(map[string]interface{}{"effect": "sepia"})
	if !errors.Is(err, boom) {
		t.Errorf("UpdateConfig: expected wrapped callback error, got %v", err)
	}
	if m.GetConfig().Effect != before.Effect {
		t.Errorf("effect committed despite error: %q", m.GetConfig().Effect)
	}
}

func TestManager_CallbackSeesPreviousConfig(t *testing.T) {
	m := newTestManager(t)

	var prev Config
	m.OnConfigChange = func(Config) error {
		prev = m.GetConfig()
		return nil
	}

	if err := m.UpdateConfig(map[string]interface{}{"width": float64(640), "height": float64(480)}); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if prev.Width != 1280 || prev.Height != 720 {
		t.Errorf("callback saw %dx%d, want the previous 1280x720", prev.Width, prev.Height)
	}
	if got := m.GetConfig(); got.Width != 640 {
		t.Errorf("width not committed: %d", got.Width)
	}
}

func TestManager_GetConfigJSON(t *testing.T) {
	m := newTestManager(t)
	js := m.GetConfigJSON()

	if js["width"] != float64(1280) {
		t.Errorf("width: got %v", js["width"])
	}
	if js["effect"] != "normal" {
		t.Errorf("effect: got %v", js["effect"])
	}
}
