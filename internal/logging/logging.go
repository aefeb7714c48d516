// Package logging builds the process-wide slog logger from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/TEAMuP-dev/HARP-sub001/internal/config"
)

// ParseLevel maps a configured level name to a slog level; unknown names give info
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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

// NewHandler creates a text or JSON handler writing to w
func NewHandler(w io.Writer, cfg config.LoggingConfig) slog.Handler {
	level := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if cfg.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// New creates the logger described by cfg. Output is "stdout" (default),
// "stderr" or a file path; a file that cannot be opened falls back to stdout.
// The returned function closes the log file, if any.
func New(cfg config.LoggingConfig) (*slog.Logger, func() error) {
	noop := func() error { return nil }

	switch cfg.Output {
	case "stderr":
		return slog.New(NewHandler(os.Stderr, cfg)), noop
	case "stdout", "":
		return slog.New(NewHandler(os.Stdout, cfg)), noop
	}

	file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
		return slog.New(NewHandler(os.Stdout, cfg)), noop
	}
	return slog.New(NewHandler(file, cfg)), file.Close
}
