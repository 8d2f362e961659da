// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tunegraph/internal/batch"
	"github.com/tomtom215/tunegraph/internal/logging"
)

// BatchRunner matches *batch.Orchestrator.
type BatchRunner interface {
	Run(ctx context.Context, req batch.Request) (*batch.Result, error)
}

// SchedulerService runs a full batch every interval. Scheduled runs use the
// service context, so shutdown cancels and rolls back a run in progress.
//
// A failed or rejected run is logged and retried on the next tick; it never
// crashes the service.
type SchedulerService struct {
	runner       BatchRunner
	interval     time.Duration
	runOnStartup bool
	logger       zerolog.Logger
}

// NewSchedulerService creates the scheduler. interval must be positive.
func NewSchedulerService(runner BatchRunner, interval time.Duration, runOnStartup bool) *SchedulerService {
	return &SchedulerService{
		runner:       runner,
		interval:     interval,
		runOnStartup: runOnStartup,
		logger:       logging.WithComponent("scheduler"),
	}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if s.runOnStartup {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SchedulerService) runOnce(ctx context.Context) {
	ctx = logging.ContextWithNewCorrelationID(ctx)

	res, err := s.runner.Run(ctx, batch.Request{Mode: batch.ModeFull})
	switch {
	case errors.Is(err, batch.ErrBatchInProgress):
		s.logger.Info().Msg("Scheduled batch skipped, another run is active")
	case err != nil && ctx.Err() != nil:
		s.logger.Info().Msg("Scheduled batch cancelled by shutdown")
	case err != nil:
		s.logger.Error().Err(err).Msg("Scheduled batch failed")
	default:
		s.logger.Debug().Str("status", string(res.Status)).Msg("Scheduled batch finished")
	}
}

// String implements fmt.Stringer.
func (s *SchedulerService) String() string {
	return "batch-scheduler"
}
