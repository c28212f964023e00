package config

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger writes to stderr, stdout stays free for piped images.
func NewLogger(env string, level slog.Level) *slog.Logger {
	return newLogger(env, level, os.Stderr)
}

func newLogger(env string, level slog.Level, w io.Writer) *slog.Logger {
	var handler slog.Handler

	cfg := Config{Environment: env}
	opts := &slog.HandlerOptions{
		AddSource: cfg.IsDevelopment(),
		Level:     level,
	}

	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
