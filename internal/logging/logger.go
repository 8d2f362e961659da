// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

// Package logging provides centralized zerolog-based logging for Tunegraph.
//
// One process-wide logger is configured at startup and read by every package:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Int("users", n).Msg("Loaded user attributes")
//	logging.Ctx(ctx).Warn().Msg("Trigger publish failed")
//	log := logging.WithComponent("batch")
//
// Terminate every event with .Msg() or .Send(); an unterminated event is
// never written.
//
// Libraries that expect log/slog (suture, watermill) get a slog.Logger over
// the same zerolog instance from NewSlogLogger.
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is stamped on every line as the "service" field.
const ServiceName = "tunegraph"

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error, fatal, panic, disabled.
	Level string

	// Format is json or console.
	Format string

	// Caller adds file:line to each line.
	Caller bool

	// Timestamp adds an RFC 3339 "time" field.
	Timestamp bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns JSON at info level with timestamps.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Timestamp: true, Output: os.Stderr}
}

var levels = map[string]zerolog.Level{
	"trace":    zerolog.TraceLevel,
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"fatal":    zerolog.FatalLevel,
	"panic":    zerolog.PanicLevel,
	"disabled": zerolog.Disabled,
}

// current is swapped whole by Init and SetLogger; readers never lock.
var current atomic.Pointer[zerolog.Logger]

//nolint:gochecknoinits // packages log before main calls Init
func init() {
	Init(DefaultConfig())
}

// Init (re)configures the global logger.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"

	out := cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(out).With().Str("service", ServiceName)
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	l := ctx.Logger()
	current.Store(&l)
}

// parseLevel maps a level name to zerolog, falling back to info.
func parseLevel(level string) zerolog.Level {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return zerolog.InfoLevel
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	return *current.Load()
}

// SetLogger replaces the global logger. Tests use it to capture output.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func SetLogger(l zerolog.Logger) {
	current.Store(&l)
}

// With starts a child logger context.
func With() zerolog.Context { return current.Load().With() }

// Debug starts a debug event.
func Debug() *zerolog.Event { return current.Load().Debug() }

// Info starts an info event.
func Info() *zerolog.Event { return current.Load().Info() }

// Warn starts a warn event.
func Warn() *zerolog.Event { return current.Load().Warn() }

// Error starts an error event.
func Error() *zerolog.Event { return current.Load().Error() }

// Fatal starts a fatal event; the process exits after it is written.
func Fatal() *zerolog.Event { return current.Load().Fatal() }

// Err starts an error event carrying err, or an info event when err is nil.
func Err(err error) *zerolog.Event { return current.Load().Err(err) }

// NewTestLogger returns a JSON logger writing to w.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
