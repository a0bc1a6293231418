// ABOUTME: This file provides the slog-based JSON logger for finance-insight
// ABOUTME: Log level and service name come from environment variables
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const defaultServiceName = "finance-insight"

// Init builds the process-wide logger from environment configuration.
func Init() *slog.Logger {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = defaultServiceName
	}
	return NewWithLevel(os.Stdout, service, os.Getenv("LOG_LEVEL"))
}

// NewWithLevel creates a JSON logger writing to output at the given level.
func NewWithLevel(output io.Writer, serviceName, level string) *slog.Logger {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	options := &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: false,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Lowercase level values keep the output grep-friendly and in
			// line with the rest of our services.
			if a.Key == slog.LevelKey {
				if lv, ok := a.Value.Any().(slog.Level); ok {
					return slog.Attr{Key: "level", Value: slog.StringValue(strings.ToLower(lv.String()))}
				}
			}
			return a
		},
	}

	handler := slog.NewJSONHandler(output, options)

	return slog.New(handler).With("service", serviceName)
}
