package logger

import (
	"log/slog"
	"os"
)

// New returns the shared structured logger. JSON output keeps log lines
// machine-parseable for the audit pipeline consumers.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// NewAtLevel returns a logger with an explicit minimum level, used by tests
// and the debug configuration path.
func NewAtLevel(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
