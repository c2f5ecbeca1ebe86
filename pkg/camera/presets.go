package camera

import "slices"

// Preset is a named capture configuration tuned for a kind of code.
type Preset struct {
	Name        string
	Description string
	Config      Config
}

var presets = []Preset{
	{
		Name:        "default",
		Description: "1280x720 at 30 FPS on the regular camera",
		Config:      DefaultConfig(),
	},
	{
		// 2D codes decode fine at VGA and the smaller frames keep the
		// detector well ahead of the camera.
		Name:        "qr",
		Description: "640x480 at 30 FPS, for QR, Data Matrix and Aztec",
		Config:      resized(DefaultConfig(), 640, 480, 30),
	},
	{
		Name:        "retail",
		Description: "1920x1080 at 15 FPS, for dense EAN/UPC and Code 128",
		Config:      resized(DefaultConfig(), 1920, 1080, 15),
	},
	{
		// Labels held a few centimetres away are only in focus on the
		// ultra wide module.
		Name:        "closeup",
		Description: "1280x720 starting on the zoom-out camera",
		Config:      withDefaultZoom(DefaultConfig(), ZoomOutFactor),
	},
}

func resized(cfg Config, width, height, fps int) Config {
	cfg.Width, cfg.Height, cfg.Framerate = width, height, fps
	return cfg
}

func withDefaultZoom(cfg Config, zoom float64) Config {
	cfg.DefaultZoom = zoom
	return cfg
}

// Presets returns the built-in presets in display order.
func Presets() []Preset {
	return slices.Clone(presets)
}

// PresetNames returns the preset names in display order.
func PresetNames() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}

// GetPreset returns a copy of the named preset's config, or nil.
func GetPreset(name string) *Config {
	i := slices.IndexFunc(presets, func(p Preset) bool { return p.Name == name })
	if i < 0 {
		return nil
	}
	cfg := presets[i].Config
	cfg.ZoomMap = DefaultZoomMap()
	return &cfg
}
