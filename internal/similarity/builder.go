// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package similarity

import (
	"errors"
	"fmt"

	"github.com/tomtom215/tunegraph/internal/models"
)

// ErrUnknownUser is returned by Incremental when the target user has no attribute data.
var ErrUnknownUser = errors.New("user has no attribute data")

// Compare computes the similarity record for one pair of users.
// The returned record is canonical: UserA < UserB regardless of argument order.
// Common artists with no resolvable name are dropped from the evidence but still
// count toward the score.
func Compare(a, b *models.UserAttributeSet, artists map[string]models.ArtistInfo) models.SimilarityRecord {
	if a.UserID > b.UserID {
		a, b = b, a
	}

	artistSim, commonArtistIDs := Jaccard(a.Artists, b.Artists)
	genreSim, commonGenres := Jaccard(a.Genres, b.Genres)

	return models.SimilarityRecord{
		UserA:              a.UserID,
		UserB:              b.UserID,
		ArtistSimilarity:   artistSim,
		GenreSimilarity:    genreSim,
		CombinedSimilarity: Combined(artistSim, genreSim),
		CommonArtists:      resolveArtists(commonArtistIDs, artists),
		CommonGenres:       commonGenres,
	}
}

// resolveArtists maps artist ids to display info, skipping ids with no known name.
func resolveArtists(ids []string, artists map[string]models.ArtistInfo) []models.CommonArtist {
	resolved := make([]models.CommonArtist, 0, len(ids))
	for _, id := range ids {
		info, ok := artists[id]
		if !ok || info.Name == "" {
			continue
		}
		resolved = append(resolved, models.CommonArtist{ID: id, Name: info.Name, ImageURL: info.ImageURL})
	}
	return resolved
}

// Full computes every unordered pair i<j over snap.Order. This is O(n^2) set
// operations, intended for user bases in the hundreds to low thousands.
func Full(snap *models.AttributeSnapshot) []models.SimilarityRecord {
	n := len(snap.Order)
	if n < 2 {
		return nil
	}

	records := make([]models.SimilarityRecord, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		a := snap.Users[snap.Order[i]]
		for j := i + 1; j < n; j++ {
			records = append(records, Compare(a, snap.Users[snap.Order[j]], snap.Artists))
		}
	}
	return records
}

// Incremental computes userID against every other user in snap (O(n)).
// The caller merges the result with upsert semantics.
func Incremental(snap *models.AttributeSnapshot, userID string) ([]models.SimilarityRecord, error) {
	target, ok := snap.Users[userID]
	if !ok {
		return nil, fmt.Errorf("incremental similarity for %s: %w", userID, ErrUnknownUser)
	}

	records := make([]models.SimilarityRecord, 0, len(snap.Order))
	for _, otherID := range snap.Order {
		if otherID == userID {
			continue
		}
		records = append(records, Compare(target, snap.Users[otherID], snap.Artists))
	}
	return records, nil
}
