// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/tunegraph/internal/batch"
)

// CalculateGraph runs a batch and returns its summary.
//
// Query parameters:
//   - mode: full (default) or incremental
//   - user_id: required when mode=incremental
//
// Concurrent full-mode calls share one run.
func (h *Handler) CalculateGraph(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	mode := batch.ModeFull
	if m := r.URL.Query().Get("mode"); m != "" {
		parsed, err := batch.ParseMode(m)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "mode must be full or incremental", nil)
			return
		}
		mode = parsed
	}

	var (
		res *batch.Result
		err error
	)
	if mode == batch.ModeFull {
		res, err = h.batch.RunFull(r.Context())
	} else {
		res, err = h.batch.Run(r.Context(), batch.Request{Mode: mode, UserID: r.URL.Query().Get("user_id")})
	}

	switch {
	case errors.Is(err, batch.ErrBatchInProgress):
		respondError(w, r, http.StatusConflict, ErrCodeBatchInProgress, "A batch run is already in progress", nil)
		return
	case errors.Is(err, batch.ErrInvalidRequest):
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, ErrCodeBatchError, "Batch failed and was rolled back: "+err.Error(), err)
		return
	}

	respondSuccess(w, http.StatusOK, res, start)
}
