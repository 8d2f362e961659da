// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/tunegraph/internal/database"
	"github.com/tomtom215/tunegraph/internal/logging"
)

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Status    string               `json:"status"`
	Database  string               `json:"database"`
	Store     *database.StoreStats `json:"store,omitempty"`
	LastBatch *BatchStatus         `json:"last_batch,omitempty"`
}

// BatchStatus summarizes the most recent batch run.
type BatchStatus struct {
	Status      string    `json:"status"`
	Mode        string    `json:"mode"`
	Users       int       `json:"users"`
	Communities int       `json:"communities"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// Health pings the store and reports the last batch outcome.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := HealthStatus{Status: "healthy", Database: "ok"}
	code := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		status.Status = "unhealthy"
		status.Database = "unreachable"
		code = http.StatusServiceUnavailable
	} else if stats, err := h.store.Stats(ctx); err == nil {
		status.Store = stats
	} else {
		logging.CtxWarn(r.Context()).Err(err).Msg("Failed to read store stats")
	}

	if last, ok := h.batch.LastResult(); ok {
		status.LastBatch = &BatchStatus{
			Status:      string(last.Status),
			Mode:        string(last.Mode),
			Users:       last.Users,
			Communities: last.Communities,
			StartedAt:   last.StartedAt,
			DurationMS:  last.DurationMS,
		}
	}

	respondSuccess(w, code, status, start)
}
