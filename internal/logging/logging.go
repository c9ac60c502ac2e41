// Package logging provides component-tagged leveled loggers backed by zerolog.
//
// Every component in the pipeline logs through a logger carrying its
// component name, so output stays greppable per subsystem. The global level
// comes from the LOG_LEVEL environment variable (DEBUG, INFO, WARN, ERROR,
// DISABLED) and defaults to INFO.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var root zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	root = zerolog.New(writer).Level(levelFromEnv()).With().Timestamp().Logger()
}

func levelFromEnv() zerolog.Level {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "DISABLED":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Component returns a logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return root.With().Str("component", name).Logger()
}

// SetLevel overrides the global log level. Mainly for tests.
func SetLevel(level zerolog.Level) {
	root = root.Level(level)
}
