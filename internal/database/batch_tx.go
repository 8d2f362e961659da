// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/tunegraph/internal/logging"
	"github.com/tomtom215/tunegraph/internal/models"
)

// insertChunkSize bounds rows per multi-row INSERT so statements stay small.
const insertChunkSize = 256

// BatchTx is one batch run's transaction. All reads and writes of a run go
// through it, so either every similarity and community row lands or none do.
// It is the only writer of the similarities and communities tables.
type BatchTx struct {
	tx *sql.Tx
}

// BeginBatch starts a batch transaction. The transaction is bound to ctx:
// cancelling ctx rolls it back.
func (db *DB) BeginBatch(ctx context.Context) (*BatchTx, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	return &BatchTx{tx: tx}, nil
}

// Commit commits the transaction.
func (b *BatchTx) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch transaction: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Rolling back a finished transaction is a no-op.
func (b *BatchTx) Rollback() error {
	if err := b.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back batch transaction: %w", err)
	}
	return nil
}

// LoadUserAttributes reads every user_artists row into a snapshot.
// Users appear in snap.Order sorted by id. A row with malformed genre JSON is
// logged and contributes its artist but no genres.
func (b *BatchTx) LoadUserAttributes(ctx context.Context) (*models.AttributeSnapshot, error) {
	rows, err := b.tx.QueryContext(ctx, `
		SELECT user_id, artist_id, artist_name, genres, image_url
		FROM user_artists
		ORDER BY user_id, artist_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user attributes: %w", err)
	}
	defer rows.Close()

	snap := models.NewAttributeSnapshot()
	for rows.Next() {
		var (
			userID, artistID string
			name, genresRaw  sql.NullString
			imageURL         sql.NullString
		)
		if err := rows.Scan(&userID, &artistID, &name, &genresRaw, &imageURL); err != nil {
			return nil, fmt.Errorf("failed to scan user attribute row: %w", err)
		}

		user := snap.User(userID)
		user.Artists[artistID] = struct{}{}

		if name.Valid && name.String != "" {
			snap.Artists[artistID] = models.ArtistInfo{Name: name.String, ImageURL: imageURL.String}
		}

		genres, err := decodeGenres(genresRaw)
		if err != nil {
			logging.Warn().
				Str("user_id", userID).
				Str("artist_id", artistID).
				Err(err).
				Msg("Skipping malformed genres")
			continue
		}
		for _, g := range genres {
			user.Genres[g] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user attributes: %w", err)
	}

	return snap, nil
}

// LoadSimilarities reads all similarity scores, ordered by pair.
// Common-evidence columns are not decoded; graph building only needs scores.
func (b *BatchTx) LoadSimilarities(ctx context.Context) ([]models.SimilarityRecord, error) {
	rows, err := b.tx.QueryContext(ctx, `
		SELECT user_a_id, user_b_id, artist_similarity, genre_similarity, combined_similarity, calculated_at
		FROM similarities
		ORDER BY user_a_id, user_b_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query similarities: %w", err)
	}
	defer rows.Close()

	var records []models.SimilarityRecord
	for rows.Next() {
		var r models.SimilarityRecord
		if err := rows.Scan(&r.UserA, &r.UserB, &r.ArtistSimilarity, &r.GenreSimilarity, &r.CombinedSimilarity, &r.CalculatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan similarity row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate similarities: %w", err)
	}
	return records, nil
}

// ReplaceSimilarities truncates the similarities table and inserts records.
func (b *BatchTx) ReplaceSimilarities(ctx context.Context, records []models.SimilarityRecord) error {
	if _, err := b.tx.ExecContext(ctx, `DELETE FROM similarities`); err != nil {
		return fmt.Errorf("failed to clear similarities: %w", err)
	}
	return b.insertSimilarities(ctx, records, "")
}

// UpsertSimilarities inserts records, overwriting scores, evidence and
// calculated_at for pairs that already exist.
func (b *BatchTx) UpsertSimilarities(ctx context.Context, records []models.SimilarityRecord) error {
	return b.insertSimilarities(ctx, records, `
		ON CONFLICT (user_a_id, user_b_id) DO UPDATE SET
			artist_similarity = EXCLUDED.artist_similarity,
			genre_similarity = EXCLUDED.genre_similarity,
			combined_similarity = EXCLUDED.combined_similarity,
			common_artists = EXCLUDED.common_artists,
			common_genres = EXCLUDED.common_genres,
			calculated_at = now()`)
}

func (b *BatchTx) insertSimilarities(ctx context.Context, records []models.SimilarityRecord, conflictClause string) error {
	const cols = 7
	for start := 0; start < len(records); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		args := make([]interface{}, 0, len(chunk)*cols)
		for i := range chunk {
			r := &chunk[i]
			if r.UserA >= r.UserB {
				return fmt.Errorf("similarity pair (%s, %s) is not canonical", r.UserA, r.UserB)
			}
			artists, err := encodeArtists(r.CommonArtists)
			if err != nil {
				return fmt.Errorf("failed to encode common artists for (%s, %s): %w", r.UserA, r.UserB, err)
			}
			genres, err := encodeStrings(r.CommonGenres)
			if err != nil {
				return fmt.Errorf("failed to encode common genres for (%s, %s): %w", r.UserA, r.UserB, err)
			}
			args = append(args, r.UserA, r.UserB, r.ArtistSimilarity, r.GenreSimilarity, r.CombinedSimilarity, artists, genres)
		}

		query := `INSERT INTO similarities (
			user_a_id, user_b_id, artist_similarity, genre_similarity,
			combined_similarity, common_artists, common_genres
		) VALUES ` + placeholders(len(chunk), cols) + conflictClause

		if _, err := b.tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to write similarities: %w", err)
		}
	}
	return nil
}

// ReplaceCommunities truncates the communities table and inserts assignments.
func (b *BatchTx) ReplaceCommunities(ctx context.Context, assignments []models.CommunityAssignment) error {
	if err := b.ClearCommunities(ctx); err != nil {
		return err
	}

	const cols = 2
	for start := 0; start < len(assignments); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(assignments) {
			end = len(assignments)
		}
		chunk := assignments[start:end]

		args := make([]interface{}, 0, len(chunk)*cols)
		for _, a := range chunk {
			args = append(args, a.UserID, a.CommunityID)
		}

		query := `INSERT INTO communities (user_id, community_id) VALUES ` + placeholders(len(chunk), cols)
		if _, err := b.tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to write communities: %w", err)
		}
	}
	return nil
}

// ClearCommunities deletes all community rows.
func (b *BatchTx) ClearCommunities(ctx context.Context) error {
	if _, err := b.tx.ExecContext(ctx, `DELETE FROM communities`); err != nil {
		return fmt.Errorf("failed to clear communities: %w", err)
	}
	return nil
}

// placeholders returns "(?, ?), (?, ?)" style groups for a multi-row VALUES list.
func placeholders(rows, cols int) string {
	group := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"
	var sb strings.Builder
	sb.Grow(rows * (len(group) + 2))
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(group)
	}
	return sb.String()
}
