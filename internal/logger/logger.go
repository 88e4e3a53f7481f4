// Package logger provides a configured zerolog logger.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a logger for the given service. The level comes from
// SMS487_LOG_LEVEL and defaults to info; unknown values fall back to info
// rather than failing startup.
func New(serviceName string) zerolog.Logger {
	return zerolog.New(os.Stdout).
		Level(levelFromEnv()).
		With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

func levelFromEnv() zerolog.Level {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("SMS487_LOG_LEVEL")))
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(raw)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
