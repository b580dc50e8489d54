package camera

// Preset names for common configurations
const (
	PresetDefault  = "default"
	PresetLegacy   = "legacy"
	Preset720p     = "720p"
	Preset1080p    = "1080p"
	PresetLowLight = "lowlight"
	PresetSharp    = "sharp"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:  DefaultConfig(),
		PresetLegacy:   LegacyConfig(),
		Preset720p:     HD720Config(),
		Preset1080p:    HD1080Config(),
		PresetLowLight: LowLightConfig(),
		PresetSharp:    SharpConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLegacy,
		Preset720p,
		Preset1080p,
		PresetLowLight,
		PresetSharp,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// HD720Config returns 720p HD configuration.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p Full HD configuration.
// Finer edges, roughly twice the CPU of 720p.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	cfg.Framerate = 10
	return cfg
}

// LowLightConfig lowers the thresholds so dim scenes still produce edges.
// Expect more sensor noise in the output.
func LowLightConfig() Config {
	cfg := DefaultConfig()
	cfg.LowThreshold = 40
	cfg.HighThreshold = 100
	return cfg
}

// SharpConfig raises the thresholds to keep only strong contours.
func SharpConfig() Config {
	cfg := DefaultConfig()
	cfg.LowThreshold = 120
	cfg.HighThreshold = 240
	return cfg
}
