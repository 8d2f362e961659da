// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/tunegraph/internal/config"
	"github.com/tomtom215/tunegraph/internal/events"
)

func testEventsConfig(transport string) *config.EventsConfig {
	return &config.EventsConfig{
		Transport:               transport,
		EmbeddedServer:          true,
		EmbeddedHost:            "127.0.0.1",
		EmbeddedPort:            -1,
		Topic:                   "profile.updated",
		DedupTTL:                time.Minute,
		CloseTimeout:            time.Second,
		BreakerFailureThreshold: 3,
		BreakerTimeout:          time.Minute,
	}
}

func TestInitEvents_GoChannel(t *testing.T) {
	ec, err := InitEvents(testEventsConfig(config.TransportGoChannel))
	if err != nil {
		t.Fatalf("InitEvents() error = %v", err)
	}
	defer ec.Shutdown(context.Background())

	if ec.server != nil {
		t.Error("embedded server started for gochannel transport")
	}
	if ec.Publisher == nil {
		t.Fatal("Publisher is nil")
	}
	if _, err := ec.Publisher.Trigger(context.Background(), "u1", "incremental"); err != nil {
		t.Errorf("Trigger() error = %v", err)
	}
}

func TestInitEvents_EmbeddedNATS(t *testing.T) {
	if testing.Short() {
		t.Skip("starts an embedded NATS server")
	}

	ec, err := InitEvents(testEventsConfig(config.TransportNATS))
	if err != nil {
		t.Fatalf("InitEvents() error = %v", err)
	}
	if ec.server == nil || !ec.server.IsRunning() {
		t.Fatal("embedded NATS server not running")
	}

	ec.Shutdown(context.Background())
	if ec.server.IsRunning() {
		t.Error("embedded NATS server still running after Shutdown")
	}
}

func TestInitEvents_UnknownTransport(t *testing.T) {
	if _, err := InitEvents(testEventsConfig("kafka")); err == nil {
		t.Error("InitEvents() succeeded for unknown transport")
	}
}

func TestInitEvents_FailureReleasesEmbeddedServer(t *testing.T) {
	if testing.Short() {
		t.Skip("starts an embedded NATS server")
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()

	// A dedup path below a regular file cannot be created.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	cfg := testEventsConfig(config.TransportNATS)
	cfg.EmbeddedPort = port
	cfg.DedupPath = filepath.Join(blocker, "dedup")

	ec, err := InitEvents(cfg)
	if err == nil {
		ec.Shutdown(context.Background())
		t.Fatal("InitEvents() succeeded with an unusable dedup path")
	}
	if ec != nil {
		t.Error("InitEvents() returned components alongside an error")
	}

	srv, err := events.NewEmbeddedServer("127.0.0.1", port)
	if err != nil {
		t.Fatalf("port %d still held after failed InitEvents: %v", port, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
