// Package logger builds the service's slog.Logger from the configured level
// and output format (text or JSON).
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures a logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text, json
	// Service, when set, is attached to every record as "service".
	Service   string
	AddSource bool
}

// New creates a *slog.Logger writing to stderr with the given level and
// format.
func New(level, format string) *slog.Logger {
	return NewWithOptions(os.Stderr, Options{Level: level, Format: format})
}

// NewWithOptions creates a *slog.Logger writing to w.
func NewWithOptions(w io.Writer, o Options) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(o.Level),
		AddSource: o.AddSource,
	}

	var handler slog.Handler
	if strings.EqualFold(o.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	if o.Service != "" {
		l = l.With("service", o.Service)
	}
	return l
}

// Component returns l tagged with a component name, the convention used for
// per-subsystem loggers (engine, scheduler, http).
func Component(l *slog.Logger, name string) *slog.Logger {
	return l.With("component", name)
}

// ParseLevel converts a level string to slog.Level, ignoring case.
// Unrecognized values return LevelInfo.
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
