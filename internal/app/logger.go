package app

import (
	"io"
	"log/slog"

	"github.com/vk/tensorscope/internal/config"
)

// newLogger creates a slog.Logger for the configured level and format. It
// does not set the global logger, allowing for isolated logger instances.
func newLogger(cfg config.Log, outW io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(outW, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(outW, handlerOpts))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
