// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

/*
Package events carries background recompute triggers from the HTTP layer to
the batch orchestrator.

A profile save publishes a ProfileUpdated event and returns without waiting.
A Consumer subscribed to the same topic runs the requested batch mode.

Transports:

  - gochannel (default): in-process, lost on restart.
  - nats: core NATS with JetStream disabled. Delivery is at-most-once; a
    missed trigger is repaired by the next scheduled full batch.

Consumer middleware, outermost first:

	PoisonQueue -> Deduplicator -> Retry -> Recoverer -> handler

Deduplication is keyed by event id and backed by badger, so a redelivered
trigger is dropped even across restarts when a dedup path is configured.
A run rejected with batch.ErrBatchInProgress is returned as an error and
retried with backoff. Skipped runs are acknowledged.

Publishing is wrapped by a circuit breaker. While the breaker is open,
Publish fails fast with ErrCircuitOpen and the caller reports the trigger
as not queued.
*/
package events
