// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Format selects the output encoding.
type Format string

const (
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"

	// FormatConsole writes human-readable colored lines.
	FormatConsole Format = "console"

	// FormatAuto uses console output on a terminal and JSON otherwise.
	FormatAuto Format = "auto"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel `yaml:"level"`

	// Format is the output encoding (default: json).
	Format Format `yaml:"format"`

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer `yaml:"-"`
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Output: os.Stderr,
	}
}

// Validate rejects unknown levels and formats.
func (c Config) Validate() error {
	switch strings.ToLower(string(c.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Level)
	}
	switch c.Format {
	case "", FormatJSON, FormatConsole, FormatAuto:
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
	return nil
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if usesConsole(cfg.Format, output) {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// usesConsole resolves FormatAuto against the output.
func usesConsole(format Format, w io.Writer) bool {
	switch format {
	case FormatConsole:
		return true
	case FormatAuto:
		f, ok := w.(*os.File)
		if !ok {
			return false
		}
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	default:
		return false
	}
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, region, key)
//   - Read-through loads and their durations
//   - Conditional requests answered with 304
//   - Fast requests from the timing middleware
//
// Info: Normal operation events
//   - Cache invalidations after writes
//   - Schema migrations
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Slow requests
//   - Store connection retries
//   - Rejected admin requests
//   - Failed readiness checks
//
// Error: Error conditions requiring attention
//   - Loader failures (not cached, surfaced to the caller)
//   - Handler panics
//   - Stores unreachable at startup
//
// Context Fields:
//   - component: cache, catalog, httpapi, store, migrate
//   - region: cache region (categories, hero)
//   - key: cache key within the region
//   - operation: write path that caused an invalidation
//   - route, method, path, status, duration: request timing
//   - request_id: X-Request-ID of the request
//   - store: backing store name (postgres, redis)
