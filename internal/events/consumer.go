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

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tunegraph/internal/batch"
	"github.com/tomtom215/tunegraph/internal/config"
	"github.com/tomtom215/tunegraph/internal/logging"
	"github.com/tomtom215/tunegraph/internal/metrics"
)

const handlerName = "profile-updated-recompute"

// Runner executes batch requests.
type Runner interface {
	Run(ctx context.Context, req batch.Request) (*batch.Result, error)
}

// Consumer runs a batch for every trigger received on the topic.
type Consumer struct {
	router *message.Router
	runner Runner
	logger zerolog.Logger
}

// NewConsumer wires the router middleware and the trigger handler. dedup may
// be nil to disable deduplication.
func NewConsumer(
	cfg *config.EventsConfig,
	ps *PubSub,
	runner Runner,
	dedup middleware.ExpiringKeyRepository,
	logger watermill.LoggerAdapter,
) (*Consumer, error) {
	if logger == nil {
		logger = NewLogger()
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	// Middleware added first wraps everything added after it.
	if cfg.PoisonTopic != "" {
		poison, err := middleware.PoisonQueue(ps.Publisher, cfg.PoisonTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		router.AddMiddleware(poison)
	}

	if dedup != nil {
		d := &middleware.Deduplicator{
			KeyFactory: func(msg *message.Message) (string, error) {
				return msg.UUID, nil
			},
			Repository: dedup,
			Timeout:    5 * time.Second,
		}
		router.AddMiddleware(d.Middleware)
	}

	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      2.0,
		Logger:          logger,
	}
	router.AddMiddleware(retry.Middleware, middleware.Recoverer)

	c := &Consumer{
		router: router,
		runner: runner,
		logger: logging.WithComponent("events"),
	}
	router.AddConsumerHandler(handlerName, cfg.Topic, ps.Subscriber, c.handle)

	return c, nil
}

func (c *Consumer) handle(msg *message.Message) error {
	evt, err := DecodeProfileUpdated(msg)
	if err != nil {
		// Never processable; ack so it is not retried.
		metrics.RecordEventConsumed("invalid")
		ev := c.logger.Warn().Err(err).Str("message_uuid", msg.UUID)
		if evt != nil {
			ev = ev.Str("event_id", evt.EventID).Str("mode", evt.Mode)
		}
		ev.Msg("Dropping invalid trigger")
		return nil
	}

	cid := msg.Metadata.Get(MetadataCorrelationID)
	if cid == "" {
		cid = evt.EventID
	}
	ctx := logging.ContextWithCorrelationID(msg.Context(), cid)

	mode := batch.Mode(evt.Mode)

	res, err := c.runner.Run(ctx, batch.Request{Mode: mode, UserID: evt.UserID})
	switch {
	case errors.Is(err, batch.ErrBatchInProgress):
		metrics.RecordEventConsumed("busy")
		c.logger.Debug().Str("event_id", evt.EventID).Msg("Batch busy, trigger will be retried")
		return err
	case errors.Is(err, batch.ErrInvalidRequest):
		metrics.RecordEventConsumed("invalid")
		c.logger.Warn().Err(err).Str("event_id", evt.EventID).Msg("Dropping trigger with invalid request")
		return nil
	case err != nil:
		metrics.RecordEventConsumed("failed")
		return fmt.Errorf("run %s batch for event %s: %w", mode, evt.EventID, err)
	}

	metrics.RecordEventConsumed(string(res.Status))
	return nil
}

// Run blocks until ctx is cancelled or the router stops.
func (c *Consumer) Run(ctx context.Context) error {
	return c.router.Run(ctx)
}

// Running is closed once the router has subscribed to its topics.
func (c *Consumer) Running() chan struct{} {
	return c.router.Running()
}

// Close stops the router, waiting up to the configured close timeout.
func (c *Consumer) Close() error {
	return c.router.Close()
}
