// Package log provides the process-wide structured logger. Output goes to
// stderr so stdout stays reserved for scan results.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	level  slog.LevelVar
	global atomic.Pointer[slog.Logger]
)

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs the global logger at the given level and makes it the slog
// default. The handler is JSON when SCANNER_LOG_FORMAT=json or
// GO_ENV=production, text otherwise. Calling Init again replaces it.
func Init(lvl string) {
	global.Store(newLogger(os.Stderr, lvl, format()))
	slog.SetDefault(global.Load())
}

func format() string {
	if f := os.Getenv("SCANNER_LOG_FORMAT"); f != "" {
		return strings.ToLower(f)
	}
	if os.Getenv("GO_ENV") == "production" {
		return "json"
	}
	return "text"
}

func newLogger(w io.Writer, lvl, format string) *slog.Logger {
	level.Set(ParseLevel(lvl))
	opts := &slog.HandlerOptions{Level: &level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SetLevel changes the level of the global logger and every logger derived
// from it.
func SetLevel(lvl string) {
	level.Set(ParseLevel(lvl))
}

// L returns the global logger, initialising it at info level on first use.
func L() *slog.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	global.CompareAndSwap(nil, newLogger(os.Stderr, "info", format()))
	return global.Load()
}

// Component returns a logger tagged with the component name.
func Component(name string) *slog.Logger {
	return L().With("component", name)
}

// With returns the global logger with the given attributes attached.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
