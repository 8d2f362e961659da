// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/tunegraph/internal/logging"
)

// ErrConsumerStopped is returned when a consumer stops without shutdown
// being requested, so the supervisor restarts it.
var ErrConsumerStopped = errors.New("consumer stopped unexpectedly")

// Consumer matches *events.Consumer.
type Consumer interface {
	Run(ctx context.Context) error
	Close() error
}

// ConsumerFactory builds a fresh consumer. A watermill router cannot run
// again once closed, so every (re)start calls the factory.
type ConsumerFactory func() (Consumer, error)

// ConsumerService runs the recompute trigger consumer under supervision.
type ConsumerService struct {
	factory ConsumerFactory
}

// NewConsumerService creates the service.
func NewConsumerService(factory ConsumerFactory) *ConsumerService {
	return &ConsumerService{factory: factory}
}

// Serve implements suture.Service.
func (s *ConsumerService) Serve(ctx context.Context) error {
	c, err := s.factory()
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Trigger consumer close failed")
		}
	}()

	err = c.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("consumer failed: %w", err)
	}
	return ErrConsumerStopped
}

// String implements fmt.Stringer.
func (s *ConsumerService) String() string {
	return "trigger-consumer"
}
