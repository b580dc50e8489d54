package camera

import (
	"testing"

	"github.com/teslashibe/go-edgeview/pkg/edge"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if errs := cfg.Validate(); len(errs) > 0 {
		t.Fatalf("DefaultConfig should be valid, got %v", errs)
	}
	if cfg.LowThreshold != edge.LowThreshold || cfg.HighThreshold != edge.HighThreshold {
		t.Errorf("thresholds: got %v/%v, want %v/%v",
			cfg.LowThreshold, cfg.HighThreshold, edge.LowThreshold, edge.HighThreshold)
	}
	if cfg.Effect != "normal" {
		t.Errorf("Effect: got %q, want normal", cfg.Effect)
	}
}

func TestPresets_AllValid(t *testing.T) {
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Errorf("GetPreset(%q) returned nil", name)
			continue
		}
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("preset %q invalid: %v", name, errs)
		}
	}

	if GetPreset("8k") != nil {
		t.Error("GetPreset should return nil for unknown preset")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errs   int
	}{
		{name: "valid", modify: func(c *Config) {}, errs: 0},
		{name: "empty device", modify: func(c *Config) { c.Device = "" }, errs: 1},
		{name: "tiny width", modify: func(c *Config) { c.Width = 10 }, errs: 1},
		{name: "huge height", modify: func(c *Config) { c.Height = 10000 }, errs: 1},
		{name: "zero framerate", modify: func(c *Config) { c.Framerate = 0 }, errs: 1},
		{name: "quality too high", modify: func(c *Config) { c.Quality = 101 }, errs: 1},
		{name: "inverted thresholds", modify: func(c *Config) { c.LowThreshold = 200 }, errs: 1},
		{name: "negative threshold", modify: func(c *Config) { c.LowThreshold = -1 }, errs: 1},
		{name: "unknown effect", modify: func(c *Config) { c.Effect = "blur" }, errs: 1},
		{
			name: "multiple problems",
			modify: func(c *Config) {
				c.Width = 0
				c.Quality = 0
			},
			errs: 2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			if errs := cfg.Validate(); len(errs) != tc.errs {
				t.Errorf("got %d errors %v, want %d", len(errs), errs, tc.errs)
			}
		})
	}
}

func TestConfig_EdgeConfig(t *testing.T) {
	cfg := SharpConfig()
	ec := cfg.EdgeConfig()

	if ec.LowThreshold != 120 || ec.HighThreshold != 240 {
		t.Errorf("thresholds: got %v/%v, want 120/240", ec.LowThreshold, ec.HighThreshold)
	}
	if !ec.RestoreColor {
		t.Error("EdgeConfig should restore color")
	}
}

func TestConfig_SourceChanged(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   bool
	}{
		{name: "same", modify: func(c *Config) {}, want: false},
		{name: "thresholds", modify: func(c *Config) { c.LowThreshold = 10 }, want: false},
		{name: "effect and fps", modify: func(c *Config) { c.Effect = "sepia"; c.Framerate = 5 }, want: false},
		{name: "device", modify: func(c *Config) { c.Device = "1" }, want: true},
		{name: "width", modify: func(c *Config) { c.Width = 1920 }, want: true},
		{name: "height", modify: func(c *Config) { c.Height = 1080 }, want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cur := DefaultConfig()
			next := cur
			tc.modify(&next)
			if got := cur.SourceChanged(next); got != tc.want {
				t.Errorf("SourceChanged: got %v, want %v", got, tc.want)
			}
		})
	}
}
