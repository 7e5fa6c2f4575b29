// Package logging builds the server's structured logger from config,
// the way the rest of the ecosystem's services do: a leveled
// slog.Logger writing text records to stdout.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// LevelTrace is one notch below slog.LevelDebug, for the rare message
// too noisy to enable outside active debugging.
const LevelTrace = slog.Level(-8)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
}

// New builds a logger at the level named by levelName ("trace",
// "debug", "info", "warn", "error"), defaulting to info.
func New(levelName string) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(levelName) {
	case "trace":
		level = LevelTrace
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	case "info":
		fallthrough
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				level := a.Value.Any().(slog.Level)
				label, ok := levelNames[level]
				if !ok {
					label = level.String()
				}
				a.Value = slog.StringValue(label)
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
