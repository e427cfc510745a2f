package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	level := parseLevel(logLevel)

	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}

// quietLogger is setupLogger for full-screen commands: without a log
// file nothing is logged, since stderr shares the screen.
func quietLogger(logFile, logLevel string) zerolog.Logger {
	if logFile == "" {
		return zerolog.New(io.Discard)
	}
	return setupLogger(logFile, logLevel)
}

func parseLevel(logLevel string) zerolog.Level {
	switch logLevel {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// clientLogger adapts zerolog to the musrv client's Logger.
type clientLogger struct {
	logger zerolog.Logger
}

func (l clientLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
