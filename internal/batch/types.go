// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/tunegraph/internal/database"
	"github.com/tomtom215/tunegraph/internal/models"
)

// Mode selects how similarities are recomputed.
type Mode string

const (
	// ModeFull recomputes every pair (O(n^2)) and replaces the similarity table.
	ModeFull Mode = "full"

	// ModeIncremental recomputes one user against everyone else (O(n)) and
	// upserts the result.
	ModeIncremental Mode = "incremental"
)

// ParseMode converts a configuration or request string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModeIncremental:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, s)
	}
}

// Status is the terminal state of a run that did not fail.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
)

// Request describes one batch run.
type Request struct {
	Mode   Mode
	UserID string // required for ModeIncremental
}

// Validate checks that the request can be run.
func (r Request) Validate() error {
	switch r.Mode {
	case ModeFull:
		return nil
	case ModeIncremental:
		if r.UserID == "" {
			return fmt.Errorf("%w: incremental run requires a user id", ErrInvalidRequest)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, r.Mode)
	}
}

// Result summarizes a run.
type Result struct {
	Status      Status        `json:"status"`
	Mode        Mode          `json:"mode"`
	Users       int           `json:"users"`
	Pairs       int           `json:"pairs"`
	Edges       int           `json:"edges"`
	Communities int           `json:"communities"`
	Reason      string        `json:"reason,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	DurationMS  int64         `json:"duration_ms"`
	Duration    time.Duration `json:"-"`
}

// Tx is the transactional storage a run works in. Everything a run reads and
// writes goes through one Tx.
type Tx interface {
	LoadUserAttributes(ctx context.Context) (*models.AttributeSnapshot, error)
	LoadSimilarities(ctx context.Context) ([]models.SimilarityRecord, error)
	ReplaceSimilarities(ctx context.Context, records []models.SimilarityRecord) error
	UpsertSimilarities(ctx context.Context, records []models.SimilarityRecord) error
	ReplaceCommunities(ctx context.Context, assignments []models.CommunityAssignment) error
	ClearCommunities(ctx context.Context) error
	Commit() error
	Rollback() error
}

// Store opens batch transactions.
type Store interface {
	BeginBatch(ctx context.Context) (Tx, error)
}

// DBStore adapts *database.DB to Store.
type DBStore struct {
	DB *database.DB
}

// BeginBatch implements Store.
func (s DBStore) BeginBatch(ctx context.Context) (Tx, error) {
	tx, err := s.DB.BeginBatch(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}
