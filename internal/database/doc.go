// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

// Package database is the DuckDB storage layer for Tunegraph.
//
// # Overview
//
// A DB is opened once at startup with New and closed at shutdown. It owns
// the schema (database_schema.go), versioned migrations (migrations.go) and
// all queries:
//
//   - batch_tx.go: the batch transaction. Loads attribute data, writes
//     similarities (replace or upsert) and communities.
//   - crud_profile.go: profile saves (users + user_artists) and lookups
//   - crud_matches.go: match recommendations and community lookups
//   - json_codec.go: JSON array columns (genres, common evidence)
//
// # Batch Transactions
//
// A batch run holds a single BatchTx from its first read to its last write:
//
//	tx, err := db.BeginBatch(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback() // no-op after Commit
//
//	snap, err := tx.LoadUserAttributes(ctx)
//	...
//	if err := tx.ReplaceSimilarities(ctx, records); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// Either every similarity and community row of a run lands or none do.
//
// # JSON Columns
//
// Genre lists and common evidence are stored as TEXT JSON arrays and decoded
// with goccy/go-json. Malformed genre JSON on one row is logged and skipped;
// it never fails a batch.
//
// # Thread Safety
//
// DB is safe for concurrent use. A BatchTx is not; it belongs to one run.
package database
