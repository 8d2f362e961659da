// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/tunegraph/internal/config"
	"github.com/tomtom215/tunegraph/internal/events"
	"github.com/tomtom215/tunegraph/internal/logging"
	"github.com/tomtom215/tunegraph/internal/supervisor/services"
)

// EventComponents owns the recompute trigger queue: the optional embedded
// NATS server, the transport, the deduplication store and the publisher.
type EventComponents struct {
	server    *events.EmbeddedServer
	pubsub    *events.PubSub
	dedup     *events.BadgerDeduplicator
	Publisher *events.Publisher
}

// InitEvents builds the trigger queue from cfg. Components created before a
// failure are closed before returning.
func InitEvents(cfg *config.EventsConfig) (_ *EventComponents, err error) {
	ec := &EventComponents{}
	defer func() {
		if err != nil {
			ec.Shutdown(context.Background())
		}
	}()

	url := ""
	if cfg.Transport == config.TransportNATS && cfg.EmbeddedServer {
		ec.server, err = events.NewEmbeddedServer(cfg.EmbeddedHost, cfg.EmbeddedPort)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		url = ec.server.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	ec.pubsub, err = events.NewPubSub(cfg, url, events.NewLogger())
	if err != nil {
		return nil, err
	}

	ec.dedup, err = events.NewBadgerDeduplicator(cfg.DedupPath, cfg.DedupTTL)
	if err != nil {
		return nil, err
	}

	ec.Publisher = events.NewPublisher(ec.pubsub.Publisher, cfg)

	logging.Info().
		Str("transport", ec.pubsub.Transport).
		Str("topic", cfg.Topic).
		Bool("dedup_persistent", cfg.DedupPath != "").
		Msg("Recompute trigger queue initialized")
	return ec, nil
}

// ConsumerFactory builds a fresh consumer over the shared transport for each
// supervisor (re)start.
func (ec *EventComponents) ConsumerFactory(cfg *config.EventsConfig, runner events.Runner) services.ConsumerFactory {
	return func() (services.Consumer, error) {
		return events.NewConsumer(cfg, ec.pubsub, runner, ec.dedup, events.NewLogger())
	}
}

// Shutdown closes everything in reverse order of creation.
func (ec *EventComponents) Shutdown(ctx context.Context) {
	var errs []error
	if ec.Publisher != nil {
		errs = append(errs, ec.Publisher.Close())
	}
	if ec.pubsub != nil {
		errs = append(errs, ec.pubsub.Close())
	}
	if ec.dedup != nil {
		errs = append(errs, ec.dedup.Close())
	}
	if ec.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		errs = append(errs, ec.server.Shutdown(shutdownCtx))
		cancel()
	}
	if err := errors.Join(errs...); err != nil {
		logging.Error().Err(err).Msg("Error shutting down trigger queue")
	}
}
