package internal

import (
	"log/slog"
	"os"
)

// LoggerFromLevel builds the process-wide JSON logger. Unknown level
// strings fall back to info rather than failing startup.
func LoggerFromLevel(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
