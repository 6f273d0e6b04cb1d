// internal/logging/logger.go
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a config level name to a slog level, defaulting to info
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

// NewLogger creates a new structured logger
func NewLogger(format string, level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// Setup builds the process logger. With a file path, output goes to a
// rotating file capped at maxSizeMB; the returned closer releases it.
func Setup(format, level, file string, maxSizeMB int) (*slog.Logger, io.Closer, error) {
	if file == "" {
		return NewLogger(format, level, os.Stderr), io.NopCloser(nil), nil
	}
	w, err := NewRotatingWriter(file, int64(maxSizeMB)*1024*1024)
	if err != nil {
		return nil, nil, err
	}
	return NewLogger(format, level, w), w, nil
}

// WithSlot returns a logger with the persistence slot attached
func WithSlot(logger *slog.Logger, slotKey string) *slog.Logger {
	return logger.With("slot", slotKey)
}

// WithPattern returns a logger with the pattern and flags attached
func WithPattern(logger *slog.Logger, regex, flags string) *slog.Logger {
	return logger.With("regex", regex, "flags", flags)
}
