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
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/tunegraph/internal/logging"
	"github.com/tomtom215/tunegraph/internal/models"
)

// maxConflictRetries bounds SaveProfile retries after a write-write conflict.
const maxConflictRetries = 2

// SaveProfile upserts the profile keyed by SpotifyUserID and replaces that
// user's followed artists, in one transaction. It returns the stored profile
// with its internal id; an existing user keeps the id it was created with.
// Concurrent saves of the same user that conflict are retried.
func (db *DB) SaveProfile(ctx context.Context, profile *models.Profile, artists []models.Artist) (*models.Profile, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	for attempt := 0; ; attempt++ {
		saved, err := db.saveProfileTx(ctx, profile, artists)
		if err == nil || !IsTransactionConflict(err) || attempt == maxConflictRetries {
			return saved, err
		}
		logging.Ctx(ctx).Debug().Err(err).Int("attempt", attempt+1).
			Str("spotify_user_id", profile.SpotifyUserID).Msg("Retrying conflicting profile save")
	}
}

func (db *DB) saveProfileTx(ctx context.Context, profile *models.Profile, artists []models.Artist) (saved *models.Profile, err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	saved, err = upsertUser(ctx, tx, profile)
	if err != nil {
		return nil, err
	}

	if err = replaceUserArtists(ctx, tx, saved.ID, artists); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit profile save: %w", err)
	}
	return saved, nil
}

func upsertUser(ctx context.Context, tx *sql.Tx, profile *models.Profile) (*models.Profile, error) {
	now := time.Now().UTC()
	saved := *profile
	saved.UpdatedAt = now

	var existingID string
	var createdAt time.Time
	err := tx.QueryRowContext(ctx,
		`SELECT id, created_at FROM users WHERE spotify_user_id = ?`, profile.SpotifyUserID).
		Scan(&existingID, &createdAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if saved.ID == "" {
			saved.ID = uuid.New().String()
		}
		saved.CreatedAt = now
		_, err = tx.ExecContext(ctx, `
			INSERT INTO users (id, spotify_user_id, nickname, bio, profile_image_url, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			saved.ID, saved.SpotifyUserID, saved.Nickname, saved.Bio, saved.ProfileImageURL, saved.CreatedAt, saved.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert user: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up user: %w", err)
	default:
		saved.ID = existingID
		saved.CreatedAt = createdAt
		_, err = tx.ExecContext(ctx, `
			UPDATE users SET nickname = ?, bio = ?, profile_image_url = ?, updated_at = ?
			WHERE id = ?`,
			saved.Nickname, saved.Bio, saved.ProfileImageURL, saved.UpdatedAt, saved.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}
	return &saved, nil
}

// replaceUserArtists deletes the user's artist rows and inserts the new list.
// Duplicate artist ids keep the last occurrence.
func replaceUserArtists(ctx context.Context, tx *sql.Tx, userID string, artists []models.Artist) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_artists WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear user artists: %w", err)
	}

	unique := make([]models.Artist, 0, len(artists))
	position := make(map[string]int, len(artists))
	for _, a := range artists {
		if i, ok := position[a.ID]; ok {
			unique[i] = a
			continue
		}
		position[a.ID] = len(unique)
		unique = append(unique, a)
	}

	const cols = 6
	for start := 0; start < len(unique); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(unique) {
			end = len(unique)
		}
		chunk := unique[start:end]

		args := make([]interface{}, 0, len(chunk)*cols)
		for _, a := range chunk {
			genres, err := encodeStrings(a.Genres)
			if err != nil {
				return fmt.Errorf("failed to encode genres for artist %s: %w", a.ID, err)
			}
			args = append(args, userID, a.ID, a.Name, genres, a.Popularity, nullIfEmpty(a.ImageURL))
		}

		query := `INSERT INTO user_artists (user_id, artist_id, artist_name, genres, popularity, image_url) VALUES ` +
			placeholders(len(chunk), cols)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert user artists: %w", err)
		}
	}
	return nil
}

// GetProfile returns the profile with the given internal id.
func (db *DB) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	return db.queryProfile(ctx, `WHERE id = ?`, id)
}

// GetProfileBySpotifyID returns the profile linked to a provider account.
func (db *DB) GetProfileBySpotifyID(ctx context.Context, spotifyUserID string) (*models.Profile, error) {
	return db.queryProfile(ctx, `WHERE spotify_user_id = ?`, spotifyUserID)
}

func (db *DB) queryProfile(ctx context.Context, where string, arg string) (*models.Profile, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		p        models.Profile
		bio, img sql.NullString
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, spotify_user_id, nickname, bio, profile_image_url, created_at, updated_at
		FROM users `+where, arg).
		Scan(&p.ID, &p.SpotifyUserID, &p.Nickname, &bio, &img, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	p.Bio = bio.String
	p.ProfileImageURL = img.String
	return &p, nil
}

// GetUserArtists returns a user's followed artists ordered by popularity.
func (db *DB) GetUserArtists(ctx context.Context, userID string) ([]models.Artist, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT artist_id, artist_name, genres, popularity, image_url
		FROM user_artists
		WHERE user_id = ?
		ORDER BY popularity DESC, artist_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user artists: %w", err)
	}
	defer rows.Close()

	artists := []models.Artist{}
	for rows.Next() {
		var (
			a                 models.Artist
			name, genres, img sql.NullString
			popularity        sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &name, &genres, &popularity, &img); err != nil {
			return nil, fmt.Errorf("failed to scan user artist: %w", err)
		}
		a.Name = name.String
		a.Popularity = int(popularity.Int64)
		a.ImageURL = img.String
		// Display path: a bad genres column just shows no genres.
		a.Genres, _ = decodeGenres(genres)
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
