// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

/*
Package supervisor runs Tunegraph's long-lived services under suture v4.

# Overview

	tunegraph
	├── events-layer
	│   └── ConsumerService     (recompute triggers from gochannel or NATS)
	├── batch-layer
	│   └── SchedulerService    (periodic full batch, if MATCH_SCHEDULE_INTERVAL > 0)
	└── api-layer
	    └── HTTPServerService

Each layer counts failures on its own, so a consumer that keeps failing
backs off without taking the HTTP server down with it.

# Usage

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))
	tree.AddBatchService(services.NewSchedulerService(orchestrator, 6*time.Hour, false))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    log.Fatal(err)
	}

Lifecycle events (start, failure, backoff, restart) are logged through
sutureslog on the slog bridge of the zerolog logger.
*/
package supervisor
