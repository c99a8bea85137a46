package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// Package-level variable that holds the configured logger instance.
// It starts disabled to be safe until InitLogger runs.
var Log zerolog.Logger = zerolog.New(nil).Level(zerolog.Disabled)

// InitLogger initializes the global logger. It should be called once, from
// main(). Development mode switches to a human-friendly console writer and
// debug level.
func InitLogger(isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if isDevelopment {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		outputWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05.000000",
		}
		Log = zerolog.New(outputWriter).
			With().
			Timestamp().
			Caller().
			Logger()
		return
	}

	Log = zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()
}

// Get returns the global logger instance. This is useful when passing the
// logger to libraries that don't use this package directly.
func Get() *zerolog.Logger {
	return &Log
}
