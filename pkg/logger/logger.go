package logger

import (
	"log/slog"
	"strings"
)

// New builds the process logger. handler is NewCloudRunHandler when serving
// and NewTestHandler in tests; level is the raw LOGLEVEL setting.
func New(level string, handler func(level slog.Level) slog.Handler) *slog.Logger {
	return slog.New(handler(ParseLevel(level)))
}

// ParseLevel maps LOGLEVEL to a slog level. Unknown values mean info so a
// typo never silences the renderer.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
