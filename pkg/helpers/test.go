package helpers

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/GregMSThompson/chart-renderer/pkg/logger"
)

// TestCtx returns a context carrying a logger that discards output.
func TestCtx() context.Context {
	log := slog.New(logger.NewTestHandler(slog.LevelInfo))
	return logger.ToContext(context.Background(), log)
}

// TestCtxWithLog returns a context whose logger records into the returned
// buffer, for asserting on what a pipeline step logged.
func TestCtxWithLog(level slog.Level) (context.Context, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := slog.New(logger.NewTestHandlerTo(buf, level))
	return logger.ToContext(context.Background(), log), buf
}
