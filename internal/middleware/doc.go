// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

// Package middleware provides HTTP middleware shared by the API router:
// request ids with log correlation, and Prometheus request metrics labelled
// by route pattern.
package middleware
