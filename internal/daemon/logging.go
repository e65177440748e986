package daemon

import (
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// NewConsole creates the daemon's console logger. Timestamps are formatted
// as "HH:MM:SS.ms".
func NewConsole(w io.Writer, level string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           ParseLevel(level),
	})
}

// ParseLevel maps a config log level to a console level. Unknown levels
// fall back to info.
func ParseLevel(level string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// SlogFrom exposes a console logger through log/slog.
func SlogFrom(console *log.Logger) *slog.Logger {
	return slog.New(console)
}
