// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

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

// Component names used with NewLogger.
const (
	ComponentNoark      = "noark-client"
	ComponentSession    = "session"
	ComponentIdP        = "idp"
	ComponentPagination = "pagination"
	ComponentEByggesak  = "ebyggesak"
	ComponentSamples    = "samples"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(string(cfg.Level)))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a level name to a zerolog.Level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
// Debug: request flow and paging
//   - Query offsets and page sizes
//   - Transaction action counts
//   - Code-list cache hits and misses
//
// Info: normal operation events
//   - Token exchanges (password grant, refresh grant)
//   - Fetch completion with record counts
//   - Sample progress (created objects, uploads, downloads)
//
// Warn: degraded but continuing
//   - Ambiguous lookups resolved to the first match
//   - Cache errors (falling back to the service)
//   - Retry attempts
//
// Error: failed operations
//   - Token exchange rejected by the identity provider
//   - Archive requests that failed after all attempts
//
// Context Fields:
//   - operation: archive API operation (query, transaction, code-lists, upload, download)
//   - entity_type: Noark object type of a query or save
//   - offset, limit: paging position
//   - status: HTTP status code
//   - error_class: client, server, network
//   - grant: password or refresh_token
//   - series_id, series_title: series being searched
