package main

import (
	"log/slog"
	"os"
	"strings"
)

// prepareLogger installs a JSON slog logger on os.Stdout as the default.
// Accepts a level name ("debug", "info", "warn", "error"); unknown names
// fall back to Info.
func prepareLogger(level string) {
	var logLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
}

// Errors while loading the configuration, the rules or the records end the
// process with exit code 1.
func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
