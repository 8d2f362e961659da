// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

/*
database_schema.go - Database Schema Management

Tables:
  - users: profile rows keyed by internal user id
  - user_artists: followed artists per user (genres as a JSON array)
  - similarities: one row per unordered user pair, user_a_id < user_b_id
  - communities: one community label per user with at least one graph edge

Only the batch transaction writes similarities and communities. Profile saves
write users and user_artists.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute table creation query: %w", err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			spotify_user_id TEXT NOT NULL UNIQUE,
			nickname TEXT NOT NULL,
			bio TEXT,
			profile_image_url TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS user_artists (
			user_id TEXT NOT NULL,
			artist_id TEXT NOT NULL,
			artist_name TEXT,
			genres TEXT,
			popularity INTEGER,
			image_url TEXT,
			PRIMARY KEY (user_id, artist_id)
		);`,

		`CREATE TABLE IF NOT EXISTS similarities (
			user_a_id TEXT NOT NULL,
			user_b_id TEXT NOT NULL,
			artist_similarity DOUBLE NOT NULL,
			genre_similarity DOUBLE NOT NULL,
			combined_similarity DOUBLE NOT NULL,
			common_artists TEXT NOT NULL DEFAULT '[]',
			common_genres TEXT NOT NULL DEFAULT '[]',
			calculated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_a_id, user_b_id),
			CHECK (user_a_id < user_b_id)
		);`,

		`CREATE TABLE IF NOT EXISTS communities (
			user_id TEXT PRIMARY KEY,
			community_id INTEGER NOT NULL,
			calculated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	}
}

// createIndexes creates secondary indexes unless cfg.SkipIndexes is set.
func (db *DB) createIndexes() error {
	if db.cfg != nil && db.cfg.SkipIndexes {
		return nil
	}

	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range indexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute index query: %s: %w", query, err)
		}
	}
	return nil
}

func indexQueries() []string {
	return []string{
		// Match lookups filter on either side of the pair.
		`CREATE INDEX IF NOT EXISTS idx_similarities_user_b ON similarities(user_b_id);`,
		`CREATE INDEX IF NOT EXISTS idx_similarities_combined ON similarities(combined_similarity);`,
		`CREATE INDEX IF NOT EXISTS idx_communities_community ON communities(community_id);`,
	}
}
