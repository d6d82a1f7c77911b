// Package logger initializes the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is the shared logger instance. Init must be called once at startup.
var Logger *slog.Logger

// Init configures slog with a JSON handler and the level from LOG_LEVEL.
func Init() *slog.Logger {
	level := slog.LevelInfo

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)

	return Logger
}
