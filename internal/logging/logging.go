// Package logging builds the engine's root structured logger.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a *slog.Logger using a JSON handler by default, or a text
// handler when format == "text" (used with --dev). level is parsed
// case-insensitively ("debug", "info", "warn", "error"); an unrecognized
// value falls back to info.
func New(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// OrDefault returns logger if non-nil, otherwise slog.Default(). Every
// component in this repo that accepts a *slog.Logger uses this instead of
// requiring callers to pass one.
func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
