// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package similarity

import "sort"

// Weights applied by Combined. They sum to 1.0, so a combination of two
// Jaccard values stays within [0, 1].
const (
	ArtistWeight = 0.6
	GenreWeight  = 0.4
)

// Jaccard returns |a ∩ b| / |a ∪ b| and the intersection itself, sorted.
//
// Two empty sets have similarity 0, not 1: an empty profile says nothing
// about taste. The result does not depend on map iteration order.
func Jaccard(a, b map[string]struct{}) (float64, []string) {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	intersection := make([]string, 0, len(small))
	for item := range small {
		if _, ok := large[item]; ok {
			intersection = append(intersection, item)
		}
	}
	sort.Strings(intersection)

	union := len(a) + len(b) - len(intersection)
	if union == 0 {
		return 0, intersection
	}
	return float64(len(intersection)) / float64(union), intersection
}

// Combined weights artist and genre similarity: 0.6*artist + 0.4*genre.
func Combined(artistSim, genreSim float64) float64 {
	return ArtistWeight*artistSim + GenreWeight*genreSim
}
