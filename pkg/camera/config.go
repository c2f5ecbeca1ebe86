package camera

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Config holds capture configuration.
type Config struct {
	// === Resolution ===
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS

	// === Zoom ===
	// DefaultZoom selects the initial device when Setup is called
	// without an explicit camera type.
	DefaultZoom float64 `json:"default_zoom"`

	// ZoomMap maps selectable zoom factors to the device class that
	// realises them.
	ZoomMap map[float64]CameraType `json:"-"`

	// === Devices ===
	// Devices lists the capture devices for backends that cannot
	// discover device classes themselves (V4L2 via gocv).
	Devices []DeviceSpec `json:"devices"`
}

// DeviceSpec describes one capture device by its OS index.
type DeviceSpec struct {
	Index     int        `json:"index"`
	Type      CameraType `json:"type"`
	Direction Direction  `json:"direction"`
	Torch     bool       `json:"torch"` // Flash LED usable as a torch
}

// Capture limits accepted by Validate.
const (
	MaxWidth     = 4096
	MaxHeight    = 2160
	MaxFramerate = 120
)

// ZoomOutFactor is the zoom factor realised by the zoom-out device.
const ZoomOutFactor = 0.5

// DefaultZoomMap returns the zoom factors offered to the user. Larger
// factors can still be requested; they are applied to the regular device.
func DefaultZoomMap() map[float64]CameraType {
	return map[float64]CameraType{
		ZoomOutFactor: ZoomOut,
		1.0:           Regular,
	}
}

// DefaultConfig returns 1280x720 at 30 FPS with a single back camera.
func DefaultConfig() Config {
	return Config{
		Width:       1280,
		Height:      720,
		Framerate:   30,
		DefaultZoom: 1.0,
		ZoomMap:     DefaultZoomMap(),
		Devices: []DeviceSpec{
			{Index: 0, Type: Regular, Direction: Back},
		},
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between 160 and %d", MaxWidth))
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between 120 and %d", MaxHeight))
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, fmt.Sprintf("framerate must be between 1 and %d", MaxFramerate))
	}

	if len(c.ZoomMap) == 0 {
		errors = append(errors, "zoom map must not be empty")
	} else if _, ok := c.ZoomMap[c.DefaultZoom]; !ok {
		errors = append(errors, fmt.Sprintf("default_zoom %.1f is not a selectable zoom factor", c.DefaultZoom))
	}

	seen := make(map[int]bool)
	for _, d := range c.Devices {
		if d.Index < 0 {
			errors = append(errors, "device index must not be negative")
		}
		if seen[d.Index] {
			errors = append(errors, fmt.Sprintf("device index %d listed twice", d.Index))
		}
		seen[d.Index] = true
	}

	return errors
}

// ZoomFactors returns the sorted zoom factors whose device class is in
// available.
func (c *Config) ZoomFactors(available func(CameraType) bool) []float64 {
	var factors []float64
	for f, t := range c.ZoomMap {
		if available(t) {
			factors = append(factors, f)
		}
	}
	sort.Float64s(factors)
	return factors
}

// ParseDeviceSpecs parses a comma separated device list of the form
// "index:type:direction[:torch]", e.g. "0:regular:back:torch,2:zoomOut".
// Type and direction default to regular and back.
func ParseDeviceSpecs(s string) ([]DeviceSpec, error) {
	var specs []DeviceSpec
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) > 4 {
			return nil, fmt.Errorf("camera: malformed device %q", item)
		}
		idx, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("camera: malformed device index %q: %w", parts[0], err)
		}
		spec := DeviceSpec{Index: idx}
		if len(parts) > 1 {
			if spec.Type, err = ParseCameraType(parts[1]); err != nil {
				return nil, err
			}
		}
		if len(parts) > 2 {
			if spec.Direction, err = ParseDirection(parts[2]); err != nil {
				return nil, err
			}
		}
		if len(parts) > 3 {
			if parts[3] != "torch" {
				return nil, fmt.Errorf("camera: malformed device %q: unknown flag %q", item, parts[3])
			}
			spec.Torch = true
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
