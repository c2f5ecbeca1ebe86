// Package config provides configuration helpers for go-barcode commands.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default scanner configuration.
const (
	DefaultAddr     = ":8080"
	DefaultCamera   = "gocv"
	DefaultLogLevel = "info"
)

// Addr returns the web presenter listen address from SCANNER_ADDR.
// Falls back to DefaultAddr if not set.
func Addr() string {
	return envOr("SCANNER_ADDR", DefaultAddr)
}

// Camera returns the camera backend ("gocv" or "replay") from SCANNER_CAMERA.
func Camera() string {
	return envOr("SCANNER_CAMERA", DefaultCamera)
}

// Devices returns the capture device list from SCANNER_DEVICES, in the
// form accepted by camera.ParseDeviceSpecs. Empty means use the default.
func Devices() string {
	return os.Getenv("SCANNER_DEVICES")
}

// LogLevel returns the log level from SCANNER_LOG_LEVEL.
func LogLevel() string {
	return envOr("SCANNER_LOG_LEVEL", DefaultLogLevel)
}

// Float returns a float from the named env var, or def if unset.
// A malformed value is an error so typos are not silently ignored.
func Float(name string, def float64) (float64, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", name, err)
	}
	return f, nil
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
