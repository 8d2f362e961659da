// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

// Package cache provides a bounded, thread-safe LRU cache with per-entry TTL.
//
// The API layer uses it for match lookups. Entries are keyed by the batch
// generation they were computed from, so a new run makes old entries
// unreachable and LRU eviction reclaims them.
package cache
