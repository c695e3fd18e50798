// Package observe wires logging and metrics for micmon: a slog logger on
// stderr and OpenTelemetry instruments fed by the engine monitor, read
// back through a manual reader for the end-of-session summary.
package observe

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LogLevels lists the accepted --log-level values.
var LogLevels = []string{"debug", "info", "warn", "error"}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q, want one of %s", s, strings.Join(LogLevels, ", "))
	}
}

// NewLogger returns a text logger writing to w at the named level.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
