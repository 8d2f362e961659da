// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

/*
Package batch orchestrates similarity and community recomputation.

A run is a small state machine inside one storage transaction:

	begin -> load attributes -> (< 2 users: rollback, skipped)
	      -> compute similarities -> write (replace or upsert)
	      -> build graph -> detect communities or clear them
	      -> commit

Any error rolls the whole run back; a partially written similarity table is
never visible.

Modes:

  - ModeFull computes every unordered pair and replaces the similarity table.
  - ModeIncremental computes one user against everyone else and upserts,
    then rebuilds the graph from the full merged table.

Concurrency:

The Orchestrator admits one run at a time. A request that arrives while a run
is active fails immediately with ErrBatchInProgress rather than queuing
behind it. RunFull additionally coalesces concurrent full-batch requests so
they share one run and one Result.
*/
package batch
