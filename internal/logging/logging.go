// Package logging builds the slog.Logger shared by every component, backed
// by charmbracelet/log for leveled console output.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// Prefix tags every line written by the application.
const Prefix = "todo"

// ParseLevel maps a level name to a charmbracelet/log Level. Unknown names
// fall back to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ParseFormat maps "json" and "logfmt" to their formatters; anything else
// selects human-readable text.
func ParseFormat(format string) log.Formatter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// New returns a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(level),
		Formatter:       ParseFormat(format),
		ReportTimestamp: true,
		Prefix:          Prefix,
	})
	return slog.New(handler)
}
