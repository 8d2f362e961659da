// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tunegraph/internal/logging"
	"github.com/tomtom215/tunegraph/internal/models"
	"github.com/tomtom215/tunegraph/internal/validation"
)

// Error codes for API responses
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeDatabaseError   = "DATABASE_ERROR"
	ErrCodeBatchError      = "BATCH_ERROR"
	ErrCodeBatchInProgress = "BATCH_IN_PROGRESS"
	ErrCodeProviderError   = "PROVIDER_ERROR"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"
)

// maxRequestBody bounds profile save payloads.
const maxRequestBody = 1 << 20

func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondSuccess(w http.ResponseWriter, status int, data interface{}, start time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondError writes an error envelope. err, when set, is logged with the
// request's correlation fields.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		logging.CtxErr(r.Context(), err).
			Str("code", code).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Int("status", status).
			Msg("API error")
	}
	respondAPIError(w, status, &models.APIError{Code: code, Message: message})
}

func respondAPIError(w http.ResponseWriter, status int, apiErr *models.APIError) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    apiErr,
	})
}

// validateRequest returns the validation envelope for s, or nil if valid.
func validateRequest(s interface{}) *models.APIError {
	if verr := validation.ValidateStruct(s); verr != nil {
		return verr.ToAPIError()
	}
	return nil
}

// sanitizeLogValue strips line breaks from client-controlled values before logging.
func sanitizeLogValue(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}
