// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

/*
Package metrics provides Prometheus metrics collection and export for observability.

Metrics are registered with the default registry via promauto and exposed at
/metrics in Prometheus text format.

# Available Metrics

Batch Metrics:
  - batch_runs_total: Batch runs (counter)
    Labels: mode (full, incremental), status (completed, skipped, failed, rejected)
  - batch_duration_seconds: Run duration (histogram), Labels: mode
  - batch_stage_duration_seconds: Per-stage duration (histogram)
    Labels: stage (load, similarity, write, graph, community, commit)
  - batch_users, batch_pairs, batch_graph_edges, batch_communities: sizes of
    the last completed run (gauges)
  - batch_last_success_timestamp_seconds: Unix time of the last completed run

API Metrics:
  - api_requests_total: Labels: method, endpoint, status_code
  - api_request_duration_seconds: Labels: method, endpoint
  - api_active_requests: in-flight requests (gauge)
  - api_rate_limit_hits_total: Labels: endpoint

Trigger Queue Metrics:
  - events_published_total: Labels: result (success, failure)
  - events_consumed_total: Labels: result (completed, skipped, retry, dropped)
  - events_deduplicated_total

Provider Metrics:
  - provider_requests_total: Labels: endpoint, status_code
  - provider_request_duration_seconds

Circuit Breaker Metrics:
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open. Labels: name
  - circuit_breaker_state_transitions_total: Labels: name, from_state, to_state

# Example Queries

	# Failed batch runs in the last hour
	increase(batch_runs_total{status="failed"}[1h])

	# 95th percentile full batch duration
	histogram_quantile(0.95, rate(batch_duration_seconds_bucket{mode="full"}[1h]))

	# Provider breaker currently open
	circuit_breaker_state{name="spotify"} == 2
*/
package metrics
