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

	"github.com/tomtom215/tunegraph/internal/logging"
	"github.com/tomtom215/tunegraph/internal/models"
)

// GetCommunity returns the user's community label from the latest batch run.
// ok is false when the user has no community row (no edges in that run).
func (db *DB) GetCommunity(ctx context.Context, userID string) (communityID int, ok bool, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx,
		`SELECT community_id FROM communities WHERE user_id = ?`, userID).Scan(&communityID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query community: %w", err)
	}
	return communityID, true, nil
}

// GetCommunityMembers returns the user ids sharing a community label, sorted.
func (db *DB) GetCommunityMembers(ctx context.Context, communityID int) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id FROM communities WHERE community_id = ? ORDER BY user_id`, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query community members: %w", err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan community member: %w", err)
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// GetMatches returns the best matches for q.UserID: other users whose combined
// similarity is at least q.Threshold, scored as combined similarity plus
// q.CommunityBonus when they share the caller's community.
func (db *DB) GetMatches(ctx context.Context, q models.MatchQuery) ([]models.Match, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.GetProfile(ctx, q.UserID); err != nil {
		return nil, err
	}

	var myCommunity interface{}
	if id, ok, err := db.GetCommunity(ctx, q.UserID); err != nil {
		return nil, err
	} else if ok {
		myCommunity = id
	}

	query := `
		WITH mine AS (
			SELECT
				CASE WHEN user_a_id = ? THEN user_b_id ELSE user_a_id END AS other_user_id,
				artist_similarity,
				genre_similarity,
				combined_similarity,
				common_artists,
				common_genres
			FROM similarities
			WHERE (user_a_id = ? OR user_b_id = ?)
			  AND combined_similarity >= ?
		)
		SELECT
			m.other_user_id,
			u.nickname,
			COALESCE(u.bio, ''),
			COALESCE(u.profile_image_url, ''),
			m.artist_similarity,
			m.genre_similarity,
			m.combined_similarity,
			m.common_artists,
			m.common_genres,
			c.community_id,
			COALESCE(c.community_id = CAST(? AS INTEGER), false) AS same_community,
			m.combined_similarity
				+ CASE WHEN c.community_id = CAST(? AS INTEGER) THEN CAST(? AS DOUBLE) ELSE 0 END AS match_score
		FROM mine m
		JOIN users u ON u.id = m.other_user_id
		LEFT JOIN communities c ON c.user_id = m.other_user_id
		ORDER BY match_score DESC, m.other_user_id
		LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query,
		q.UserID, q.UserID, q.UserID, q.Threshold,
		myCommunity, myCommunity, q.CommunityBonus,
		q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := []models.Match{}
	for rows.Next() {
		var (
			m              models.Match
			artists, genre string
			community      sql.NullInt64
		)
		if err := rows.Scan(&m.UserID, &m.Nickname, &m.Bio, &m.ProfileImageURL,
			&m.ArtistSimilarity, &m.GenreSimilarity, &m.CombinedSimilarity,
			&artists, &genre, &community, &m.SameCommunity, &m.MatchScore); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		if community.Valid {
			id := int(community.Int64)
			m.CommunityID = &id
		}

		if m.CommonArtists, err = decodeArtists(artists); err != nil {
			logging.Warn().Str("user_id", q.UserID).Str("other_user_id", m.UserID).Err(err).
				Msg("Malformed common_artists evidence")
		}
		if m.CommonGenres, err = decodeStrings(genre); err != nil {
			logging.Warn().Str("user_id", q.UserID).Str("other_user_id", m.UserID).Err(err).
				Msg("Malformed common_genres evidence")
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}
	return matches, nil
}
