// Package observability sets up the process-wide logger and tracer provider.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogConfig controls the slog handler.
type LogConfig struct {
	Level     string // debug, info, warn, error
	Format    string // json or text
	AddSource bool
	Writer    io.Writer
}

// NewLogger builds a slog logger; output defaults to stderr so results on
// stdout stay clean.
func NewLogger(cfg LogConfig) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
