// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/tunegraph/internal/logging"
)

// migration is one schema change applied after the base tables exist.
// Entries are append-only; a shipped version is never edited.
type migration struct {
	version int
	name    string
	stmts   []string
}

var schemaMigrations = []migration{
	{
		version: 1,
		name:    "user_artists_user_index",
		stmts:   []string{`CREATE INDEX IF NOT EXISTS idx_user_artists_user ON user_artists(user_id)`},
	},
}

func migrations() []migration { return schemaMigrations }

// runVersionedMigrations applies pending migrations in version order. Each
// migration and its ledger row commit in one transaction.
func (db *DB) runVersionedMigrations() error {
	ctx, cancel := schemaContext()
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := db.GetCurrentSchemaVersion(ctx)
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range migrations() {
		if m.version <= current {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return err
		}
		applied++
	}

	if applied > 0 {
		logging.Info().Int("count", applied).Int("version", current+applied).Msg("Applied database migrations")
	}
	return nil
}

func (db *DB) applyMigration(ctx context.Context, m migration) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration v%d: begin: %w", m.version, err)
	}
	defer rollbackOnError(tx, &err)

	for _, stmt := range m.stmts {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration v%d (%s): %w", m.version, m.name, err)
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name); err != nil {
		return fmt.Errorf("migration v%d: record: %w", m.version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("migration v%d: commit: %w", m.version, err)
	}
	return nil
}

// GetCurrentSchemaVersion returns the highest applied migration version, or
// 0 on a fresh database.
func (db *DB) GetCurrentSchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var version int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return version, nil
}
