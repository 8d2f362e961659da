// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tunegraph/internal/config"
	"github.com/tomtom215/tunegraph/internal/logging"
	"github.com/tomtom215/tunegraph/internal/metrics"
)

// ErrCircuitOpen is returned while the publish breaker is open.
var ErrCircuitOpen = errors.New("trigger publisher circuit open")

// ErrPublisherClosed is returned after Close.
var ErrPublisherClosed = errors.New("trigger publisher is closed")

// Publisher submits recompute triggers. It does not wait for the run.
type Publisher struct {
	publisher message.Publisher
	topic     string
	breaker   *gobreaker.CircuitBreaker[any]

	mu     sync.RWMutex
	closed bool
}

// NewPublisher wraps pub for cfg.Topic with a circuit breaker.
func NewPublisher(pub message.Publisher, cfg *config.EventsConfig) *Publisher {
	return &Publisher{
		publisher: pub,
		topic:     cfg.Topic,
		breaker:   newCircuitBreaker("trigger-publisher", cfg.BreakerFailureThreshold, cfg.BreakerTimeout),
	}
}

// Trigger publishes a ProfileUpdated event and returns its id.
func (p *Publisher) Trigger(ctx context.Context, userID, mode string) (string, error) {
	evt := NewProfileUpdated(userID, mode)
	if err := evt.Validate(); err != nil {
		return "", err
	}
	if err := p.Publish(ctx, evt); err != nil {
		return "", err
	}
	return evt.EventID, nil
}

// Publish sends evt on the trigger topic.
func (p *Publisher) Publish(ctx context.Context, evt *ProfileUpdated) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	msg, err := evt.ToMessage()
	if err != nil {
		return err
	}
	msg.SetContext(ctx)
	if cid := logging.CorrelationIDFromContext(ctx); cid != "" {
		msg.Metadata.Set(MetadataCorrelationID, cid)
	}

	_, err = p.breaker.Execute(func() (any, error) {
		return nil, p.publisher.Publish(p.topic, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	metrics.RecordEventPublished(err)
	if err != nil {
		return fmt.Errorf("publish trigger: %w", err)
	}

	logging.Ctx(ctx).Debug().
		Str("event_id", evt.EventID).
		Str("user_id", evt.UserID).
		Str("mode", evt.Mode).
		Msg("Recompute trigger published")
	return nil
}

// BreakerState returns the breaker state name.
func (p *Publisher) BreakerState() string {
	return p.breaker.State().String()
}

// Close stops further publishing. The underlying transport is closed by its owner.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
