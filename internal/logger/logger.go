// Package logger provides process-wide logging for ragdesk, backed by zerolog.
// Warnings and errors are always written. Debug and info messages only
// appear when verbose mode is enabled via the --verbose flag.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	verbose bool
	jsonOut bool
	output  io.Writer = os.Stderr
	zl                = build(os.Stderr, false, false)
)

// build constructs the underlying zerolog logger for the current settings.
func build(w io.Writer, isVerbose, isJSON bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if isVerbose {
		level = zerolog.DebugLevel
	}

	if isJSON {
		return zerolog.New(w).Level(level).
			With().
			Timestamp().
			Str("service", "ragdesk").
			Logger()
	}

	console := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.RFC3339,
		PartsOrder: []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel: func(i any) string {
			return "[" + strings.ToUpper(fmt.Sprint(i)) + "]"
		},
	}
	return zerolog.New(console).Level(level)
}

func rebuild() {
	zl = build(output, verbose, jsonOut)
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	rebuild()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetJSON switches between console and JSON output.
func SetJSON(v bool) {
	mu.Lock()
	defer mu.Unlock()
	jsonOut = v
	rebuild()
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := zl
	return &l
}

// Debug logs a message in verbose mode.
func Debug(format string, args ...any) {
	current().Debug().Msgf(format, args...)
}

// Section logs a section header in verbose mode.
func Section(name string) {
	current().Debug().Msgf("=== %s ===", name)
}

// Info logs an informational message in verbose mode.
func Info(format string, args ...any) {
	current().Info().Msgf(format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	current().Warn().Msgf(format, args...)
}

// Error logs an error.
func Error(err error, format string, args ...any) {
	current().Error().Err(err).Msgf(format, args...)
}

// Fields is a child logger carrying structured key/value pairs.
type Fields struct {
	zl zerolog.Logger
}

// With returns a child logger that adds key=value to every entry.
func With(key string, value any) *Fields {
	return &Fields{zl: current().With().Interface(key, value).Logger()}
}

// With adds another key/value pair.
func (f *Fields) With(key string, value any) *Fields {
	return &Fields{zl: f.zl.With().Interface(key, value).Logger()}
}

// Debug logs at debug level.
func (f *Fields) Debug(format string, args ...any) {
	f.zl.Debug().Msgf(format, args...)
}

// Info logs at info level.
func (f *Fields) Info(format string, args ...any) {
	f.zl.Info().Msgf(format, args...)
}

// Warn logs at warn level.
func (f *Fields) Warn(format string, args ...any) {
	f.zl.Warn().Msgf(format, args...)
}

// Error logs err at error level.
func (f *Fields) Error(err error, format string, args ...any) {
	f.zl.Error().Err(err).Msgf(format, args...)
}
