// Package logging builds the service logger and keeps attribute names
// consistent across packages.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys
const (
	KeyOperation = "operation"
	KeyPath      = "path"
	KeyURL       = "url"
	KeyStrategy  = "strategy"
	KeyDuration  = "duration"
	KeyError     = "error"
)

// New returns a logger writing to w. format is "json" or "text"; level is
// one of debug, info, warn, error (default info).
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to a slog.Level
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// WithOperation returns a logger with the operation attribute set
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// Err returns a slog attribute for an error.
// If err is nil the attribute is an empty group, which slog omits.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// Discard returns a logger that drops everything, handy in tests
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
