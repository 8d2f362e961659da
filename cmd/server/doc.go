// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

/*
Package main is the entry point for the Tunegraph server.

Tunegraph stores each user's followed artists and their genres, computes
pairwise taste similarity in batch, and groups users into communities with
Louvain modularity optimization. Matches and communities are served over a
small JSON API.

# Application Architecture

	tunegraph
	├── events-layer
	│   └── trigger consumer   (watermill router over gochannel or NATS)
	├── batch-layer
	│   └── batch scheduler    (periodic full recompute)
	└── api-layer
	    └── HTTP server        (chi router)

Initialization order:

 1. Configuration: koanf with defaults, optional YAML file, environment
 2. Logging: zerolog, JSON or console
 3. Database: DuckDB schema for profiles, artists, similarities, communities
 4. Batch orchestrator
 5. Trigger queue: optional embedded NATS server, transport, badger dedup
 6. Spotify client for followed-artist lookups
 7. HTTP handler and router
 8. Supervisor tree; blocks until SIGINT or SIGTERM

# Configuration

Common environment variables:

	DUCKDB_PATH               database file (default /data/tunegraph.duckdb)
	HTTP_PORT                 listen port (default 3000)
	LOG_LEVEL, LOG_FORMAT     zerolog level and format
	MATCH_THRESHOLD           minimum combined similarity for a graph edge
	MATCH_RESOLUTION          Louvain resolution
	MATCH_SCHEDULE_INTERVAL   full-batch interval, 0 disables
	EVENTS_TRANSPORT          gochannel or nats
	NATS_URL, NATS_EMBEDDED   external or in-process NATS server

See internal/config for the complete list.
*/
package main
