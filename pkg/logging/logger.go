// Package logging configures zerolog for the Pokédex client and commands.
package logging

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level is a textual log level as read from flags or LOG_LEVEL.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level written.
	Level Level

	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool

	// Output defaults to os.Stderr when nil.
	Output io.Writer
}

// DefaultConfig returns JSON logging at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// ConfigFromEnv reads LOG_LEVEL and LOG_PRETTY through getenv.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := DefaultConfig()
	if lvl := getenv("LOG_LEVEL"); lvl != "" {
		cfg.Level = Level(lvl)
	}
	if pretty, err := strconv.ParseBool(getenv("LOG_PRETTY")); err == nil {
		cfg.Pretty = pretty
	}
	return cfg
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

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

// ParseLevel maps a textual level to zerolog. Unknown values mean info.
func ParseLevel(level Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
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

// NewLogger returns a child of the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithRequestID attaches a request_id field to logger and stores the result in ctx.
func WithRequestID(ctx context.Context, logger zerolog.Logger, requestID string) context.Context {
	l := logger.With().Str("request_id", requestID).Logger()
	return l.WithContext(ctx)
}

// FromContext returns the logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

// Level guide:
//
// Debug: per-request detail
//   - cache hit/miss/write with key and ttl
//   - conditional requests and 304s
//   - query issue, superseded responses dropped, list pages merged
//
// Info: lifecycle
//   - server startup and shutdown
//   - list drained, export files written and uploaded
//
// Warn: degraded but continuing
//   - upstream non-2xx (NetworkFailure)
//   - cache backend errors (request served without cache)
//   - concurrency gate waits over 500ms
//   - query and list page failures
//
// Error: needs attention
//   - transport failures
//   - startup and configuration errors
//
// Fields:
//   - component: emitting package
//   - endpoint: PokeAPI path
//   - status: HTTP status code
//   - error_class: client, server, network, decode
//   - id, offset: resource parameters
//   - generation: query request tag
//   - cache: hit or miss
//   - request_id: proxy request id
//   - duration, ttl
