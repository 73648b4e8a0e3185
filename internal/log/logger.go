package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Level maps the repeatable -v flag to a slog level: 0 warn, 1 info,
// 2 and above debug.
func Level(verbose int) slog.Level {
	switch {
	case verbose <= 0:
		return slog.LevelWarn
	case verbose == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// New creates a credential-masking text logger writing to w.
func New(w io.Writer, verbose int) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: Level(verbose),
	})
	return slog.New(NewMaskingHandler(handler))
}

// NewWithFile creates a logger writing to the given file path, or to
// stderr when the path is empty. The returned close function flushes
// and closes the file; it is a no-op for stderr.
func NewWithFile(path string, verbose int) (*slog.Logger, func() error, error) {
	if path == "" {
		return New(os.Stderr, verbose), func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) //nolint:gosec // User-provided log path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return New(f, verbose), f.Close, nil
}
