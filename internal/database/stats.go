// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package database

import (
	"context"
	"fmt"
	"time"
)

// queryTimeout bounds store calls made without a deadline.
const queryTimeout = 30 * time.Second

func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, queryTimeout)
}

// Checkpoint flushes the DuckDB WAL into the database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// RecordCounts holds row counts for the main tables.
type RecordCounts struct {
	Users        int64 `json:"users"`
	UserArtists  int64 `json:"user_artists"`
	Similarities int64 `json:"similarities"`
	Communities  int64 `json:"communities"`
}

// StoreStats is reported by the health endpoint.
type StoreStats struct {
	SchemaVersion int          `json:"schema_version"`
	Records       RecordCounts `json:"records"`
}

// GetRecordCounts counts rows in users, user_artists, similarities and
// communities in one round trip.
func (db *DB) GetRecordCounts(ctx context.Context) (*RecordCounts, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var c RecordCounts
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM user_artists),
			(SELECT COUNT(*) FROM similarities),
			(SELECT COUNT(*) FROM communities)`).
		Scan(&c.Users, &c.UserArtists, &c.Similarities, &c.Communities)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	return &c, nil
}

// Stats returns the schema version and table sizes.
func (db *DB) Stats(ctx context.Context) (*StoreStats, error) {
	version, err := db.GetCurrentSchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := db.GetRecordCounts(ctx)
	if err != nil {
		return nil, err
	}
	return &StoreStats{SchemaVersion: version, Records: *counts}, nil
}
