// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if cfg.Caller {
		t.Error("expected default caller to be false")
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(func() { Init(DefaultConfig()) })

	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})

	Info().Int("users", 3).Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("expected output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("expected output to contain level, got: %s", output)
	}
	if !strings.Contains(output, `"users":3`) {
		t.Errorf("expected output to contain users field, got: %s", output)
	}
	if !strings.Contains(output, `"service":"tunegraph"`) {
		t.Errorf("expected output to contain service field, got: %s", output)
	}
}

func TestInit_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(func() { Init(DefaultConfig()) })

	Init(Config{Level: "warn", Format: "console", Output: &buf})

	Info().Msg("hidden")
	Warn().Msg("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("info line written at warn level: %s", output)
	}
	if !strings.Contains(output, "shown") || strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("expected console output, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"disabled", zerolog.Disabled},
		{"DEBUG", zerolog.DebugLevel},
		{" info ", zerolog.InfoLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCtx_AddsContextIDs(t *testing.T) {
	var buf bytes.Buffer
	original := Logger()
	t.Cleanup(func() { SetLogger(original) })
	SetLogger(NewTestLogger(&buf))

	ctx := ContextWithRequestID(context.Background(), "req-123")
	ctx = ContextWithCorrelationID(ctx, "corr-456")

	Ctx(ctx).Info().Msg("handled")

	output := buf.String()
	if !strings.Contains(output, `"request_id":"req-123"`) {
		t.Errorf("missing request_id in %s", output)
	}
	if !strings.Contains(output, `"correlation_id":"corr-456"`) {
		t.Errorf("missing correlation_id in %s", output)
	}
}

func TestContextWithNewCorrelationID(t *testing.T) {
	t.Parallel()

	ctx := ContextWithNewCorrelationID(context.Background())
	id := CorrelationIDFromContext(ctx)
	if len(id) != 8 {
		t.Errorf("correlation ID length = %d, want 8", len(id))
	}
	if RequestIDFromContext(ctx) != "" {
		t.Error("request ID should be empty")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	original := Logger()
	t.Cleanup(func() { SetLogger(original) })
	SetLogger(NewTestLogger(&buf))

	logger := WithComponent("batch")
	logger.Info().Msg("run started")

	if !strings.Contains(buf.String(), `"component":"batch"`) {
		t.Errorf("missing component field in %s", buf.String())
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := NewSlogHandlerWithLogger(NewTestLogger(&buf))
	logger := slog.New(handler).With("service", "http").WithGroup("req")

	logger.Warn("slow request", "path", "/api/v1/health", "err", errors.New("boom"))

	output := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"service":"http"`,
		`"req.path":"/api/v1/health"`,
		`"req.err":"boom"`,
		`"message":"slow request"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %s: %s", want, output)
		}
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
