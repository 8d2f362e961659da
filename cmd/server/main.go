// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/tunegraph/internal/api"
	"github.com/tomtom215/tunegraph/internal/batch"
	"github.com/tomtom215/tunegraph/internal/config"
	"github.com/tomtom215/tunegraph/internal/database"
	"github.com/tomtom215/tunegraph/internal/logging"
	"github.com/tomtom215/tunegraph/internal/provider"
	"github.com/tomtom215/tunegraph/internal/supervisor"
	"github.com/tomtom215/tunegraph/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Float64("threshold", cfg.Matching.Threshold).
		Float64("resolution", cfg.Matching.Resolution).
		Str("save_mode", cfg.Matching.SaveMode).
		Str("events_transport", cfg.Events.Transport).
		Msg("Starting Tunegraph")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Tunegraph stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	orchestrator := batch.New(batch.DBStore{DB: db}, batch.Options{
		Threshold:  cfg.Matching.Threshold,
		Resolution: cfg.Matching.Resolution,
		Seed:       cfg.Matching.Seed,
		Timeout:    cfg.Matching.BatchTimeout,
	})

	ec, err := InitEvents(&cfg.Events)
	if err != nil {
		return fmt.Errorf("initialize events: %w", err)
	}
	defer ec.Shutdown(context.Background())

	spotify := provider.NewClient(&cfg.Provider)

	handler := api.NewHandler(db, orchestrator, spotify, ec.Publisher, cfg.Matching)
	router := api.NewRouter(handler, cfg.Security)

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		// Full batches run inside the request.
		WriteTimeout: cfg.Server.Timeout + cfg.Matching.BatchTimeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddEventsService(services.NewConsumerService(ec.ConsumerFactory(&cfg.Events, orchestrator)))

	if cfg.Matching.ScheduleInterval > 0 {
		tree.AddBatchService(services.NewSchedulerService(
			orchestrator, cfg.Matching.ScheduleInterval, cfg.Matching.RunOnStartup,
		))
		logging.Info().
			Dur("interval", cfg.Matching.ScheduleInterval).
			Bool("run_on_startup", cfg.Matching.RunOnStartup).
			Msg("Batch scheduler enabled")
	} else {
		logging.Info().Msg("Batch scheduler disabled (MATCH_SCHEDULE_INTERVAL=0)")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return nil
}
