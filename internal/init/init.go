// Package init sets logging defaults before any other packages initialize.
// Import this package with a blank identifier as the first import so that
// config loading and client construction log at the requested level.
package init

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogLevelEnv overrides the global log level, e.g. LOG_LEVEL=debug
const LogLevelEnv = "LOG_LEVEL"

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	level := zerolog.InfoLevel
	if raw := os.Getenv(LogLevelEnv); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
}
