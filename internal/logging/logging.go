package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the process logger. Records are written as JSON to stderr and,
// when logFile is set, appended to that file as well. The logger becomes the
// slog default. The returned cleanup func closes the log file and must be
// deferred by the caller.
func New(level, logFile string) (*slog.Logger, func(), error) {
	var out io.Writer = os.Stderr
	cleanup := func() {}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(os.Stderr, f)
		cleanup = func() { _ = f.Close() }
	}

	logger := NewWithWriter(out, level)
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

// NewWithWriter returns a JSON logger writing to w without touching the
// slog default. CLI commands and tests use it.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(handler).With("app", "semanadefe")
}

func parseLevel(s string) slog.Level {
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
