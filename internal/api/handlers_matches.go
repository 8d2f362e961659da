// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tunegraph/internal/database"
	"github.com/tomtom215/tunegraph/internal/metrics"
	"github.com/tomtom215/tunegraph/internal/models"
)

// MatchesRequest holds validated match query parameters.
type MatchesRequest struct {
	UserID string `json:"id" validate:"required,max=128"`
	Limit  int    `json:"limit" validate:"min=1,max=50"`
}

// MatchesResponse lists ranked matches for one user.
type MatchesResponse struct {
	UserID  string         `json:"user_id"`
	Matches []models.Match `json:"matches"`
	Count   int            `json:"count"`
}

// CommunityResponse is a user's community and its members. CommunityID is
// null when the user had no qualifying edges in the last run.
type CommunityResponse struct {
	UserID      string   `json:"user_id"`
	CommunityID *int     `json:"community_id"`
	Members     []string `json:"members"`
}

// Matches returns other users at or above the similarity threshold, ranked by
// match score (combined similarity plus the same-community bonus).
func (h *Handler) Matches(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := MatchesRequest{UserID: chi.URLParam(r, "id"), Limit: h.matching.MatchLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "limit must be an integer", nil)
			return
		}
		req.Limit = n
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	key := h.matchCacheKey(req.UserID, req.Limit)
	if matches, ok := h.matches.Get(key); ok {
		metrics.RecordCacheLookup("matches", true)
		respondSuccess(w, http.StatusOK, MatchesResponse{UserID: req.UserID, Matches: matches, Count: len(matches)}, start)
		return
	}
	metrics.RecordCacheLookup("matches", false)

	matches, err := h.store.GetMatches(r.Context(), models.MatchQuery{
		UserID:         req.UserID,
		Threshold:      h.matching.Threshold,
		CommunityBonus: h.matching.CommunityBonus,
		Limit:          req.Limit,
	})
	if errors.Is(err, database.ErrUserNotFound) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "User not found", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load matches", err)
		return
	}
	if matches == nil {
		matches = []models.Match{}
	}
	h.matches.Add(key, matches)

	respondSuccess(w, http.StatusOK, MatchesResponse{UserID: req.UserID, Matches: matches, Count: len(matches)}, start)
}

// Community returns the user's community label and fellow members.
func (h *Handler) Community(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	if _, err := h.store.GetProfile(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "User not found", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load user", err)
		return
	}

	resp := CommunityResponse{UserID: id, Members: []string{}}
	communityID, ok, err := h.store.GetCommunity(r.Context(), id)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load community", err)
		return
	}
	if ok {
		resp.CommunityID = &communityID
		members, err := h.store.GetCommunityMembers(r.Context(), communityID)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load community members", err)
			return
		}
		resp.Members = members
	}

	respondSuccess(w, http.StatusOK, resp, start)
}
