// Package logging builds the tint-backed slog loggers used by the commands.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

// TimeFormat is the short clock used in terminal output.
const TimeFormat = "15:04:05"

// Options controls logger construction.
type Options struct {
	Level   slog.Level
	NoColor bool
}

// New returns a logger writing coloured, human-readable records to w.
func New(w io.Writer, opts Options) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		TimeFormat: TimeFormat,
		NoColor:    opts.NoColor,
	}))
}

// ParseLevel accepts debug, info, warn or error (case-insensitive).
// An empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
