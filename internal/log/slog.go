package log

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

type Options struct {
	Writer io.Writer
	Level  string
	Color  bool
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds the process logger: colored via tint for terminals,
// plain text otherwise.
func NewLogger(o Options) *slog.Logger {
	if o.Writer == nil {
		o.Writer = os.Stdout
	}
	level := ParseLevel(o.Level)
	var h slog.Handler
	if o.Color {
		h = tint.NewHandler(o.Writer, &tint.Options{Level: level, TimeFormat: "2006-01-02 15:04:05"})
	} else {
		h = slog.NewTextHandler(o.Writer, &slog.HandlerOptions{Level: level})
	}
	return slog.New(h)
}
