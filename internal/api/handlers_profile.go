// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tunegraph/internal/config"
	"github.com/tomtom215/tunegraph/internal/database"
	"github.com/tomtom215/tunegraph/internal/logging"
	"github.com/tomtom215/tunegraph/internal/models"
	"github.com/tomtom215/tunegraph/internal/provider"
)

// SaveProfileRequest is the profile save body. Followed artists come from the
// provider when AccessToken is set, otherwise from Artists.
type SaveProfileRequest struct {
	SpotifyUserID   string          `json:"spotify_user_id" validate:"required,max=128"`
	Nickname        string          `json:"nickname" validate:"required,min=1,max=50,nickname"`
	Bio             string          `json:"bio" validate:"max=500"`
	ProfileImageURL string          `json:"profile_image_url" validate:"omitempty,url,max=2048"`
	AccessToken     string          `json:"access_token" validate:"max=4096"`
	Artists         []models.Artist `json:"artists" validate:"max=10000,dive"`
}

// SaveProfileResponse reports the stored profile and whether a recompute was queued.
type SaveProfileResponse struct {
	Profile         *models.Profile `json:"profile"`
	ArtistCount     int             `json:"artist_count"`
	RecomputeQueued bool            `json:"recompute_queued"`
	RecomputeMode   string          `json:"recompute_mode,omitempty"`
	EventID         string          `json:"event_id,omitempty"`
}

// UserProfileResponse is a profile with its followed artists.
type UserProfileResponse struct {
	Profile *models.Profile `json:"profile"`
	Artists []models.Artist `json:"artists"`
}

// SaveProfile stores a profile and its followed artists, then queues a
// recompute without waiting for it. A failed queue submission is logged and
// reported as recompute_queued=false; the save itself still succeeds.
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req SaveProfileRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	artists := req.Artists
	if req.AccessToken != "" {
		if h.artists == nil {
			respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Provider lookups are not configured; send artists instead", nil)
			return
		}
		fetched, err := h.artists.FollowedArtists(r.Context(), req.AccessToken)
		if err != nil {
			h.respondProviderError(w, r, err)
			return
		}
		artists = fetched
	} else if artists == nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "access_token or artists is required", nil)
		return
	}

	saved, err := h.store.SaveProfile(r.Context(), &models.Profile{
		SpotifyUserID:   req.SpotifyUserID,
		Nickname:        req.Nickname,
		Bio:             req.Bio,
		ProfileImageURL: req.ProfileImageURL,
	}, artists)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to save profile", err)
		return
	}

	resp := SaveProfileResponse{Profile: saved, ArtistCount: len(artists)}
	if h.trigger != nil {
		mode := h.matching.SaveMode
		userID := saved.ID
		if mode == config.SaveModeFull {
			userID = ""
		}
		eventID, err := h.trigger.Trigger(r.Context(), userID, mode)
		if err != nil {
			logging.CtxWarn(r.Context()).Err(err).Str("user_id", saved.ID).Msg("Failed to queue recompute after profile save")
		} else {
			resp.RecomputeQueued = true
			resp.RecomputeMode = mode
			resp.EventID = eventID
		}
	}

	logging.CtxInfo(r.Context()).
		Str("user_id", saved.ID).
		Int("artists", len(artists)).
		Bool("recompute_queued", resp.RecomputeQueued).
		Msg("Profile saved")

	respondSuccess(w, http.StatusOK, resp, start)
}

func (h *Handler) respondProviderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, provider.ErrUnauthorized):
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Access token was rejected by the provider", nil)
	case errors.Is(err, provider.ErrCircuitOpen):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "Provider is temporarily unavailable", err)
	default:
		respondError(w, r, http.StatusBadGateway, ErrCodeProviderError, "Failed to fetch followed artists", err)
	}
}

// GetUser returns a profile with its followed artists.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	profile, err := h.store.GetProfile(r.Context(), id)
	if errors.Is(err, database.ErrUserNotFound) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "User not found", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load user", err)
		return
	}

	artists, err := h.store.GetUserArtists(r.Context(), id)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load artists", err)
		return
	}
	if artists == nil {
		artists = []models.Artist{}
	}

	respondSuccess(w, http.StatusOK, UserProfileResponse{Profile: profile, Artists: artists}, start)
}
