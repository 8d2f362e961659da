// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// SlogHandler is a slog.Handler that writes through zerolog. Suture (via
// sutureslog) and watermill log through it so every line shares one format.
type SlogHandler struct {
	logger zerolog.Logger
	prefix string // open groups joined by "." with a trailing dot
}

// NewSlogHandler wraps the global logger.
func NewSlogHandler() *SlogHandler {
	return &SlogHandler{logger: Logger()}
}

// NewSlogHandlerWithLogger wraps logger.
//
//nolint:gocritic // zerolog.Logger is passed by value by convention
func NewSlogHandlerWithLogger(logger zerolog.Logger) *SlogHandler {
	return &SlogHandler{logger: logger}
}

// NewSlogLogger returns a slog.Logger on the global logger.
func NewSlogLogger() *slog.Logger {
	return slog.New(NewSlogHandler())
}

func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	zl := slogToZerologLevel(level)
	return zl >= h.logger.GetLevel() && zl >= zerolog.GlobalLevel()
}

//nolint:gocritic // slog.Record is passed by value by the slog.Handler interface
func (h *SlogHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make([]interface{}, 0, 2*record.NumAttrs())
	record.Attrs(func(a slog.Attr) bool {
		fields = flatten(fields, h.prefix, a)
		return true
	})
	h.logger.WithLevel(slogToZerologLevel(record.Level)).Fields(fields).Msg(record.Message)
	return nil
}

// WithAttrs binds attrs into a child zerolog logger under the open groups.
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var fields []interface{}
	for _, a := range attrs {
		fields = flatten(fields, h.prefix, a)
	}
	return &SlogHandler{logger: h.logger.With().Fields(fields).Logger(), prefix: h.prefix}
}

func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SlogHandler{logger: h.logger, prefix: h.prefix + name + "."}
}

// flatten appends a as key/value pairs, expanding groups into dotted keys.
func flatten(fields []interface{}, prefix string, a slog.Attr) []interface{} {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			fields = flatten(fields, inner, ga)
		}
		return fields
	}
	if a.Key == "" {
		return fields
	}
	return append(fields, prefix+a.Key, v.Any())
}

func slogToZerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level >= slog.LevelError:
		return zerolog.ErrorLevel
	case level >= slog.LevelWarn:
		return zerolog.WarnLevel
	case level >= slog.LevelInfo:
		return zerolog.InfoLevel
	case level >= slog.LevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}
