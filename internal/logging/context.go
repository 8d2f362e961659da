// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type (
	correlationIDKey struct{}
	requestIDKey     struct{}
)

// Correlation ids group the lines of one batch run or trigger across
// components. Request ids identify one HTTP request.

// GenerateCorrelationID returns a short (8 character) random id.
func GenerateCorrelationID() string {
	return uuid.NewString()[:8]
}

// GenerateRequestID returns a random UUID.
func GenerateRequestID() string {
	return uuid.NewString()
}

// ContextWithCorrelationID returns ctx carrying id.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// ContextWithNewCorrelationID returns ctx carrying a fresh correlation id.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns the correlation id, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// ContextWithRequestID returns ctx carrying the HTTP request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Ctx returns the global logger with the ids in ctx attached.
//
//	logging.Ctx(ctx).Info().Msg("Profile saved")
func Ctx(ctx context.Context) *zerolog.Logger {
	l := withIDs(ctx, With()).Logger()
	return &l
}

func withIDs(ctx context.Context, lc zerolog.Context) zerolog.Context {
	if id := CorrelationIDFromContext(ctx); id != "" {
		lc = lc.Str("correlation_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	return lc
}

// CtxInfo is Ctx(ctx).Info().
func CtxInfo(ctx context.Context) *zerolog.Event { return Ctx(ctx).Info() }

// CtxWarn is Ctx(ctx).Warn().
func CtxWarn(ctx context.Context) *zerolog.Event { return Ctx(ctx).Warn() }

// CtxErr is Ctx(ctx).Err(err).
func CtxErr(ctx context.Context, err error) *zerolog.Event { return Ctx(ctx).Err(err) }

// WithComponent returns a child of the global logger with a component field.
// It captures the logger at call time, so create component loggers after Init.
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
