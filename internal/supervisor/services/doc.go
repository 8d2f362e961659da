// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

/*
Package services adapts Tunegraph components to suture.Service.

Return values decide what the supervisor does next:

	nil        stopped cleanly, not restarted
	error      crashed, restarted with backoff
	ctx.Err()  shutdown requested

Every service implements fmt.Stringer; suture uses the name in its log events.

Components with a blocking Run that cannot be restarted once closed, such as
the watermill router behind the trigger consumer, are wrapped through a
factory so each restart gets a fresh instance.
*/
package services
