// Package logging installs the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs a JSON slog handler tagged with the service name as the default logger.
func Setup(service string, debug bool) *slog.Logger {
	return SetupWriter(os.Stdout, service, debug)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, service string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler).With(slog.String("service", service))
	slog.SetDefault(logger)
	return logger
}
