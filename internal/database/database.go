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
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/tunegraph/internal/config"
	"github.com/tomtom215/tunegraph/internal/logging"
)

const memoryPath = ":memory:"

// ErrUserNotFound is returned when a user id has no profile row.
var ErrUserNotFound = errors.New("user not found")

// DB is the DuckDB-backed store for profiles, similarities and communities.
// One DB is opened at startup and shared by the API and the batch runner.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens the database described by cfg and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	if cfg.Path != memoryPath {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	db.configurePool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return db, nil
}

// dsn renders cfg as a DuckDB connection string. Extension autoload is off
// because the schema uses none and restricted networks would hang on install.
func dsn(cfg *config.DatabaseConfig) string {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	q := url.Values{}
	q.Set("access_mode", "read_write")
	q.Set("threads", strconv.Itoa(threads))
	if cfg.MaxMemory != "" {
		q.Set("max_memory", cfg.MaxMemory)
	}
	q.Set("preserve_insertion_order", strconv.FormatBool(cfg.PreserveInsertionOrder))
	q.Set("autoinstall_known_extensions", "false")
	q.Set("autoload_known_extensions", "false")
	return cfg.Path + "?" + q.Encode()
}

// configurePool sizes the connection pool. An in-memory database lives in a
// single connection, so that connection is pinned and never recycled.
func (db *DB) configurePool() {
	if db.cfg.Path == memoryPath {
		db.conn.SetMaxOpenConns(1)
		db.conn.SetMaxIdleConns(1)
		db.conn.SetConnMaxLifetime(0)
		db.conn.SetConnMaxIdleTime(0)
		return
	}
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

func (db *DB) initialize() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"create tables", db.createTables},
		{"migrate", db.runVersionedMigrations},
		{"create indexes", db.createIndexes},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	if err := db.Checkpoint(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after schema initialization")
	}
	return nil
}

// Close checkpoints and closes the connection pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if err := db.Checkpoint(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	return db.conn.Close()
}

// Ping checks that the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return errors.New("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}
