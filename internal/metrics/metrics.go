// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch Metrics
	BatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_runs_total",
			Help: "Total number of batch runs by mode and outcome",
		},
		[]string{"mode", "status"}, // status: "completed", "skipped", "failed", "rejected"
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batch_duration_seconds",
			Help:    "Duration of batch runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
		},
		[]string{"mode"},
	)

	BatchStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "batch_stage_duration_seconds",
			Help:    "Duration of individual batch stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // "load", "similarity", "write", "graph", "community", "commit"
	)

	BatchUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batch_users",
			Help: "Users processed by the last completed batch run",
		},
	)

	BatchPairs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batch_pairs",
			Help: "Similarity pairs written by the last completed batch run",
		},
	)

	BatchEdges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batch_graph_edges",
			Help: "Graph edges retained by the last completed batch run",
		},
	)

	BatchCommunities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batch_communities",
			Help: "Communities detected by the last completed batch run",
		},
	)

	BatchLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batch_last_success_timestamp_seconds",
			Help: "Unix time of the last completed batch run",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Trigger Queue Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of recompute triggers published",
		},
		[]string{"result"}, // "success", "failure"
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_consumed_total",
			Help: "Total number of recompute triggers handled by the consumer",
		},
		[]string{"result"}, // "completed", "skipped", "retry", "dropped"
	)

	EventsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "events_deduplicated_total",
			Help: "Total number of duplicate triggers dropped",
		},
	)

	// Provider Metrics
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of requests to the profile-data provider",
		},
		[]string{"endpoint", "status_code"},
	)

	ProviderRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Profile-data provider request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
	)

	// Cache Metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"cache", "result"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// BatchOutcome is what a batch run reports to RecordBatchRun.
type BatchOutcome struct {
	Mode        string
	Status      string
	Users       int
	Pairs       int
	Edges       int
	Communities int
	Duration    time.Duration
}

// RecordBatchRun records one batch run. Size gauges only move on completed runs.
func RecordBatchRun(o BatchOutcome) {
	BatchRunsTotal.WithLabelValues(o.Mode, o.Status).Inc()
	if o.Status == "rejected" {
		return
	}
	BatchDuration.WithLabelValues(o.Mode).Observe(o.Duration.Seconds())
	if o.Status != "completed" {
		return
	}
	BatchUsers.Set(float64(o.Users))
	BatchPairs.Set(float64(o.Pairs))
	BatchEdges.Set(float64(o.Edges))
	BatchCommunities.Set(float64(o.Communities))
	BatchLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordBatchStage records the duration of one batch stage.
func RecordBatchStage(stage string, duration time.Duration) {
	BatchStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit records a rate limit rejection.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordEventPublished records a trigger publish attempt.
func RecordEventPublished(err error) {
	if err != nil {
		EventsPublished.WithLabelValues("failure").Inc()
		return
	}
	EventsPublished.WithLabelValues("success").Inc()
}

// RecordEventConsumed records a consumer outcome.
func RecordEventConsumed(result string) {
	EventsConsumed.WithLabelValues(result).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordEventDeduplicated records a dropped duplicate trigger.
func RecordEventDeduplicated() {
	EventsDeduplicated.Inc()
}

// RecordProviderRequest records one provider HTTP call.
func RecordProviderRequest(endpoint, statusCode string, duration time.Duration) {
	ProviderRequestsTotal.WithLabelValues(endpoint, statusCode).Inc()
	ProviderRequestDuration.Observe(duration.Seconds())
}

// RecordCircuitBreakerTransition records a breaker state change.
// States are gobreaker state names: "closed", "half-open", "open".
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
