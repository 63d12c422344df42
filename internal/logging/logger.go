package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvLogLevel names the environment variable consulted when no explicit
// level is given.
const EnvLogLevel = "SPLAT_ORBIT_LOG_LEVEL"

// ParseLevel maps debug, info, warn and error to zerolog levels. Anything
// else, including the empty string, yields fallback.
func ParseLevel(level string, fallback zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return fallback
	}
}

// InitWriter initializes the global logger. level takes precedence over
// SPLAT_ORBIT_LOG_LEVEL; when both are empty, fallback is used.
// Output is a human-readable console writer on w.
func InitWriter(w io.Writer, level string, fallback zerolog.Level) {
	if level == "" {
		level = os.Getenv(EnvLogLevel)
	}
	zerolog.SetGlobalLevel(ParseLevel(level, fallback))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
}
