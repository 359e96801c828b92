package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// createCLILogger creates a logger for CLI commands. Logs go to stderr so
// they never mix with the trace on stdout.
func createCLILogger(logLevel string) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:   parseLogLevel(logLevel),
		NoColor: os.Getenv("NO_COLOR") != "",
	}))
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
