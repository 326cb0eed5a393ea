// Package logger holds the process-wide zerolog instance. Configure it once
// at startup with New; everything else reads it through GetLogger.
package logger

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu           sync.Mutex
	initialized  bool
	globalLogger zerolog.Logger
)

// GetLogger returns the global logger, falling back to console output at info
// level when New was never called (tests, tooling).
func GetLogger() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !initialized {
		globalLogger = consoleLogger().Level(zerolog.InfoLevel)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		initialized = true
	}
	return globalLogger
}

// New configures the global logger from level and format configuration.
func New(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, err
	}

	var base zerolog.Logger
	switch strings.ToLower(format) {
	case "json":
		base = zerolog.New(os.Stdout).With().Timestamp().Logger()
	case "console":
		base = consoleLogger()
	default:
		return zerolog.Logger{}, errors.New("unsupported log format")
	}

	zerolog.SetGlobalLevel(lvl)

	mu.Lock()
	globalLogger = base.Level(lvl)
	initialized = true
	mu.Unlock()

	return globalLogger, nil
}

func consoleLogger() zerolog.Logger {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(consoleWriter).With().Timestamp().Logger()
}
