// Package logging configures the service-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn or error.
	// Unknown values fall back to info.
	Level string

	// Pretty switches from JSON to human-readable console output.
	Pretty bool

	// Output is the destination writer, os.Stderr when nil.
	Output io.Writer
}

// FromEnv builds a Config from the LOG_LEVEL and LOG_PRETTY environment
// variables, defaulting to info-level JSON on stderr.
func FromEnv() Config {
	return Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Pretty: os.Getenv("LOG_PRETTY") == "true",
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it. Loggers
// created with NewLogger before Setup keep the previous configuration.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger derives a child of the global logger tagged with a component
// name, e.g. usecase-metrics, usecase-profile or http-api.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - GitHub request flow (operation, username)
//   - Derived metric values
//
// Info: Normal operation events
//   - Use case start/end with status and duration
//   - Cache hits
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Unknown users (404 from GitHub)
//   - Cancelled requests
//   - Invalid username syntax
//
// Error: Error conditions requiring attention
//   - GitHub rate limit exhaustion
//   - GitHub timeouts and unavailability
//   - Cache backend failures
//   - Configuration errors
//
// Context Fields:
//   - username: GitHub login being looked up
//   - usecase: "metrics" or "profile"
//   - status: "success" or "failure"
//   - duration: End-to-end use case duration
//   - error_kind: Error classification (not_found, rate_limited, timeout,
//     cancelled, unavailable)
//   - cache_key: Store key touched by the operation
//   - ttl_seconds: TTL applied on cache population
