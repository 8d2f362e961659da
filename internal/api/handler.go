// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package api

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/tunegraph/internal/batch"
	"github.com/tomtom215/tunegraph/internal/cache"
	"github.com/tomtom215/tunegraph/internal/config"
	"github.com/tomtom215/tunegraph/internal/database"
	"github.com/tomtom215/tunegraph/internal/models"
)

const (
	defaultMatchLimit = 10

	matchCacheSize = 4096
	// Profile edits between runs show up after at most this long.
	matchCacheTTL = time.Minute
)

// Store is the read/write surface the handlers need from the database.
type Store interface {
	SaveProfile(ctx context.Context, profile *models.Profile, artists []models.Artist) (*models.Profile, error)
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	GetUserArtists(ctx context.Context, userID string) ([]models.Artist, error)
	GetMatches(ctx context.Context, q models.MatchQuery) ([]models.Match, error)
	GetCommunity(ctx context.Context, userID string) (int, bool, error)
	GetCommunityMembers(ctx context.Context, communityID int) ([]string, error)
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (*database.StoreStats, error)
}

// BatchRunner runs batches synchronously.
type BatchRunner interface {
	RunFull(ctx context.Context) (*batch.Result, error)
	Run(ctx context.Context, req batch.Request) (*batch.Result, error)
	LastResult() (batch.Result, bool)
}

// ArtistSource fetches a user's followed artists from the provider.
type ArtistSource interface {
	FollowedArtists(ctx context.Context, accessToken string) ([]models.Artist, error)
}

// Trigger queues a background recompute.
type Trigger interface {
	Trigger(ctx context.Context, userID, mode string) (string, error)
}

// Handler serves the API endpoints.
type Handler struct {
	store    Store
	batch    BatchRunner
	artists  ArtistSource
	trigger  Trigger
	matching config.MatchingConfig

	// matches is keyed by batch generation, user and limit.
	matches *cache.LRU[[]models.Match]
}

// NewHandler creates a handler. artists and trigger may be nil: saves then
// require an explicit artist list, and no recompute is queued.
//
//nolint:gocritic // MatchingConfig is copied once at construction
func NewHandler(store Store, runner BatchRunner, artists ArtistSource, trigger Trigger, matching config.MatchingConfig) *Handler {
	if matching.MatchLimit <= 0 {
		matching.MatchLimit = defaultMatchLimit
	}
	if matching.SaveMode == "" {
		matching.SaveMode = config.SaveModeIncremental
	}
	return &Handler{
		store:    store,
		batch:    runner,
		artists:  artists,
		trigger:  trigger,
		matching: matching,
		matches:  cache.NewLRU[[]models.Match](matchCacheSize, matchCacheTTL),
	}
}

// matchCacheKey scopes a match lookup to the batch run it was read after.
func (h *Handler) matchCacheKey(userID string, limit int) string {
	var gen int64
	if last, ok := h.batch.LastResult(); ok {
		gen = last.StartedAt.UnixNano()
	}
	return fmt.Sprintf("%d|%s|%d", gen, userID, limit)
}
