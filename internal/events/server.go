// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tunegraph/internal/logging"
)

const (
	embeddedServerName = "tunegraph-events"
	embeddedMaxPayload = 64 * 1024 // triggers are a few hundred bytes
	embeddedReadyWait  = 10 * time.Second
)

// EmbeddedServer is an in-process core NATS server for single-instance
// deployments. JetStream stays off.
type EmbeddedServer struct {
	ns *server.Server
}

// NewEmbeddedServer starts a NATS server on host:port and blocks until it
// accepts connections. Port -1 picks a free port.
func NewEmbeddedServer(host string, port int) (*EmbeddedServer, error) {
	ns, err := server.NewServer(&server.Options{
		ServerName: embeddedServerName,
		Host:       host,
		Port:       port,
		NoSigs:     true,
		MaxPayload: embeddedMaxPayload,
	})
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	l := logging.WithComponent("nats-server")
	ns.SetLoggerV2(natsLogger{l: l}, l.GetLevel() <= zerolog.DebugLevel, false, false)

	go ns.Start()
	if !ns.ReadyForConnections(embeddedReadyWait) {
		ns.Shutdown()
		return nil, errors.New("embedded NATS server not ready in time")
	}
	return &EmbeddedServer{ns: ns}, nil
}

// ClientURL is the nats:// URL clients connect to.
func (s *EmbeddedServer) ClientURL() string { return s.ns.ClientURL() }

// IsRunning reports whether the server is accepting clients.
func (s *EmbeddedServer) IsRunning() bool { return s.ns.Running() }

// Shutdown stops the server. It returns ctx.Err() if the server has not
// exited before ctx is done.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.ns.Shutdown()
		s.ns.WaitForShutdown()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// natsLogger implements server.Logger on zerolog.
type natsLogger struct {
	l zerolog.Logger
}

func (n natsLogger) Noticef(format string, v ...interface{}) { n.l.Info().Msgf(format, v...) }
func (n natsLogger) Warnf(format string, v ...interface{})   { n.l.Warn().Msgf(format, v...) }
func (n natsLogger) Errorf(format string, v ...interface{})  { n.l.Error().Msgf(format, v...) }
func (n natsLogger) Debugf(format string, v ...interface{})  { n.l.Debug().Msgf(format, v...) }
func (n natsLogger) Tracef(format string, v ...interface{})  { n.l.Trace().Msgf(format, v...) }

// Fatalf logs at error level; the process owns its own exit.
func (n natsLogger) Fatalf(format string, v ...interface{}) { n.l.Error().Msgf(format, v...) }
