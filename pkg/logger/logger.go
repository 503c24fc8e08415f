// Package logger is a small leveled logging façade backed by zerolog.
//
// It exposes printf-style helpers so call sites stay terse while output
// remains structured and level-filtered.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

// ParseLevel parses a log level string ("trace", "debug", "info", "warn",
// "error") into a zerolog level.
func ParseLevel(raw string) (zerolog.Level, error) {
	return zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
}

// SetOutput replaces the writer used by the package logger.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = base.Output(w)
}

// SetLevel sets the level threshold for the package logger.
func SetLevel(level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	base = base.Level(level)
}

// Base returns the current package logger.
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns a child logger annotated with a component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}

// Tracef logs at TRACE level.
func Tracef(format string, args ...any) {
	l := Base()
	l.Trace().Msgf(format, args...)
}

// Debugf logs at DEBUG level.
func Debugf(format string, args ...any) {
	l := Base()
	l.Debug().Msgf(format, args...)
}

// Infof logs at INFO level.
func Infof(format string, args ...any) {
	l := Base()
	l.Info().Msgf(format, args...)
}

// Warnf logs at WARN level.
func Warnf(format string, args ...any) {
	l := Base()
	l.Warn().Msgf(format, args...)
}

// Errorf logs at ERROR level.
func Errorf(format string, args ...any) {
	l := Base()
	l.Error().Msgf(format, args...)
}
