// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

/*
Package models defines data structures shared across Tunegraph.

Key Components:

  - UserAttributeSet / AttributeSnapshot: per-run taste profiles loaded from user_artists
  - ArtistInfo / CommonArtist: display data used to resolve shared artists
  - SimilarityRecord: one canonical (user_a_id < user_b_id) similarity row
  - CommunityAssignment: one user's community label for a single run
  - Profile / Artist / Match: profile storage and match recommendations
  - APIResponse: standard HTTP response envelope

Models carry json tags for API output and validate tags where they are
accepted as request input.
*/
package models
