// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package database

import (
	"database/sql"
	"errors"
	"io"
	"strings"

	"github.com/tomtom215/tunegraph/internal/logging"
)

// closeQuietly closes a resource and explicitly ignores any error.
// Use in error paths where Close errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// rollbackOnError rolls tx back when *errp is non-nil, logging rollback failures
// alongside the original error.
func rollbackOnError(tx *sql.Tx, errp *error) {
	if *errp == nil {
		return
	}
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		logging.Error().
			Err(rbErr).
			AnErr("original_error", *errp).
			Msg("Transaction rollback failed")
	}
}

// conflictMarkers are substrings of DuckDB optimistic-concurrency errors.
var conflictMarkers = []string{
	"Transaction conflict",
	"Conflict on update",
	"cannot update a table that has been altered",
}

// IsTransactionConflict reports whether err is a DuckDB write-write conflict.
// Conflicting transactions are safe to retry from the start.
func IsTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, m := range conflictMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
