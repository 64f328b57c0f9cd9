package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Logger wraps slog.Logger with application-specific functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger with the specified level
func New(level string) *Logger {
	return &Logger{Logger: slog.New(newHandler(os.Stdout, level))}
}

// NewWithFile creates a logger that writes to stdout and appends to the given
// file. The bot runs unattended for days, so a durable log alongside the
// console output matters.
func NewWithFile(level, path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{Logger: slog.New(newHandler(io.MultiWriter(os.Stdout, f), level))}, nil
}

// Default returns a logger with default settings
func Default() *Logger {
	return New("info")
}

func newHandler(w io.Writer, level string) slog.Handler {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
}
