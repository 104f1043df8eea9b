package logger

import (
	"io"
	"log/slog"
)

// NewTestHandler discards everything; tests that care about log output use
// NewTestHandlerTo.
func NewTestHandler(level slog.Level) slog.Handler {
	return NewTestHandlerTo(io.Discard, level)
}

// NewTestHandlerTo writes plain text records at or above level to w.
func NewTestHandlerTo(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}
