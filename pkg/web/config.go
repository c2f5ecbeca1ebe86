package web

import "fmt"

// Config holds web presenter configuration.
type Config struct {
	Addr string `json:"addr"` // Listen address, e.g. ":8080"

	// === Preview ===
	PreviewFPS  float64 `json:"preview_fps"`  // Max preview frames per second
	JPEGQuality int     `json:"jpeg_quality"` // 1-100

	// ScanFrameFraction sizes the default on-screen scan rectangle as a fraction of
	// the shorter screen side, applied when a session is presented.
	ScanFrameFraction float64 `json:"scan_frame_fraction"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		PreviewFPS:        10,
		JPEGQuality:       70,
		ScanFrameFraction: 0.7,
	}
}

// Validate checks if the config values are within valid ranges.
func (c *Config) Validate() []string {
	var errors []string
	if c.Addr == "" {
		errors = append(errors, "addr must not be empty")
	}
	if c.PreviewFPS <= 0 || c.PreviewFPS > 60 {
		errors = append(errors, fmt.Sprintf("preview_fps must be in (0, 60], got %.1f", c.PreviewFPS))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errors = append(errors, "jpeg_quality must be between 1 and 100")
	}
	if c.ScanFrameFraction <= 0 || c.ScanFrameFraction > 1 {
		errors = append(errors, "scan_frame_fraction must be in (0, 1]")
	}
	return errors
}
