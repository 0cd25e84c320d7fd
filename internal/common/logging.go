package common

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// LogLevel maps the --quiet and --verbose flags to a level. Quiet wins.
func LogLevel(quiet, verbose bool) slog.Level {
	switch {
	case quiet:
		return slog.LevelError
	case verbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a JSON logger, or a tint text logger for LogFormatText.
func NewLogger(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	switch format {
	case "", LogFormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	case LogFormatText:
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want %s or %s)", format, LogFormatJSON, LogFormatText)
	}
}
