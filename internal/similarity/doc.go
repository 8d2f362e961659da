// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

// Package similarity computes taste similarity between users.
//
// # Scoring
//
// Artist and genre sets are compared with Jaccard similarity:
//
//	jaccard(A, B) = |A ∩ B| / |A ∪ B|     (0 when both sets are empty)
//	combined      = 0.6*artist + 0.4*genre
//
// Jaccard also returns the intersection so callers can report shared
// artists and genres without recomputing it.
//
// # Pair Enumeration
//
// Full enumerates every unordered pair once, in snapshot load order.
// Incremental compares a single user against everyone else, which is what a
// profile save needs. Both produce canonical records where user_a_id <
// user_b_id, so a pair never appears twice.
//
// All functions are pure; they perform no I/O and are safe for concurrent use
// on snapshots that are not being mutated.
package similarity
