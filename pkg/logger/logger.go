package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New constructs the JSON slog logger shared by the service and the CLI.
func New() *slog.Logger {
	return NewTo(os.Stdout)
}

// NewTo is New writing to w.
func NewTo(w io.Writer) *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", "searchcal")
}

func parseLevel(level string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
