package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
)

var (
	out          io.Writer = os.Stderr
	currentLevel           = InfoLevel
	runID        string

	log zerolog.Logger
)

func init() {
	if lvl, err := ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		currentLevel = lvl
	}
	rebuild()
}

func rebuild() {
	ctx := zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}).
		Level(currentLevel).
		With().Timestamp()
	if runID != "" {
		ctx = ctx.Str("run_id", runID)
	}
	log = ctx.Logger()
}

// ParseLevel accepts debug, info, warn/warning and error, case-insensitive.
// An empty string means info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DebugLevel, nil
	case "INFO", "":
		return InfoLevel, nil
	case "WARN", "WARNING":
		return WarnLevel, nil
	case "ERROR":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// SetLevel changes the level of the global logger.
func SetLevel(s string) error {
	lvl, err := ParseLevel(s)
	if err != nil {
		return err
	}
	currentLevel = lvl
	rebuild()
	return nil
}

// SetOutput redirects the global logger.
func SetOutput(w io.Writer) {
	out = w
	rebuild()
}

// WithRunID tags every following line with the given run id.
func WithRunID(id string) {
	runID = id
	rebuild()
}

func Debug(format string, args ...interface{}) {
	log.Debug().Msgf(format, args...)
}

func Info(format string, args ...interface{}) {
	log.Info().Msgf(format, args...)
}

func Warn(format string, args ...interface{}) {
	log.Warn().Msgf(format, args...)
}

func Error(format string, args ...interface{}) {
	log.Error().Msgf(format, args...)
}
