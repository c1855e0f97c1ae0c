// Package logging sets up the process-wide zerolog logger and hands out
// per-component child loggers.
//
// Call Setup once at startup; every package then obtains its logger with
// NewLogger so log lines carry a "component" field.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a level name as accepted in configuration.
type LogLevel string

// Accepted level names. "warning" is also understood as LevelWarn.
const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config selects the minimum level, the output format and the sink.
type Config struct {
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console format.
	Pretty bool

	// Output defaults to os.Stderr when nil.
	Output io.Writer
}

// DefaultConfig logs JSON at info level to stderr.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Output: os.Stderr}
}

// Setup applies cfg to the global level and replaces log.Logger, which
// NewLogger derives from. It returns the new root logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	root := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = root
	return root
}

// Levels lists the accepted level names.
func Levels() []LogLevel {
	return []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
}

// parseLevel maps a level name to zerolog, falling back to info.
func parseLevel(level LogLevel) zerolog.Level {
	switch LogLevel(strings.ToLower(string(level))) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn, "warning":
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger returns a child of the root logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// What goes where:
//
// Debug: cache hits, misses and expiries (key, ttl), locale chain steps,
// janitor sweeps.
//
// Info: assembled pages (load_time_ms, succeeded, failed), cache clears,
// server start and stop.
//
// Warn: failed upstream resources replaced by a fallback payload, locale
// fallback to the default, unrecognized content blocks.
//
// Error: aborted page aggregations, configuration errors.
//
// Fields in use: component, page, locale, resource, error_class,
// status_code, duration, key, request_id.
