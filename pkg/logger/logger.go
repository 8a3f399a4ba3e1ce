package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the global logger instance
	Log zerolog.Logger

	level = zerolog.InfoLevel
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	// Default to console output with color
	build(consoleWriter(os.Stdout))
}

func consoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
	}
}

func build(out io.Writer) {
	Log = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
	// packages logging through zerolog/log share the same output
	log.Logger = Log
}

// SetLevel sets the log level
func SetLevel(levelStr string) {
	parsed, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		parsed = zerolog.InfoLevel
	}
	level = parsed
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
	log.Logger = Log
}

// SetFormat switches between "console" and "json" output on stdout.
func SetFormat(format string) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		build(os.Stdout)
	case "", "console", "text":
		build(consoleWriter(os.Stdout))
	default:
		Log.Warn().Str("format", format).Msg("invalid log format, keeping console")
	}
}
