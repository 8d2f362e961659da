// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

/*
Package api provides the HTTP surface of tunegraph using the Chi router.

Endpoints:

	GET  /api/v1/health                         store ping and last batch summary
	GET  /api/v1/batch/calculate-graph          run a batch synchronously
	POST /api/v1/profile/save                   save a profile, queue a recompute
	GET  /api/v1/users/{id}                     profile with followed artists
	GET  /api/v1/users/{id}/matches             ranked matches
	GET  /api/v1/users/{id}/community           community label and members
	GET  /metrics                               Prometheus metrics

calculate-graph responds 200 with the run summary for completed and skipped
runs (a skip carries status "skipped" and a reason), 409 while another run
holds the batch guard, and 500 when the run failed and was rolled back.

All JSON bodies use the models.APIResponse envelope.
*/
package api
