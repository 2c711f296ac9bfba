package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. JSON output so log pipelines can
// index request IDs and registration IDs without parsing.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
