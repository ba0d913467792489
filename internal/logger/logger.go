package logger

import (
	"log/slog"
	"os"

	"github.com/aqqutelabs/gotoken-ledger/internal/config"
)

// NewLogger builds the process logger. Output is JSON except in the
// local environment, where a text handler is easier to read.
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.Application.Env == "local" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler).With("app", cfg.Application.Name)
	log.Info("logger initialized", "level", level.String(), "env", cfg.Application.Env)

	return log
}
