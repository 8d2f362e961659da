// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package community

import "github.com/tomtom215/tunegraph/internal/graph"

// Modularity returns the weighted modularity of membership on g:
//
//	Q = Σ_c [ L_c/m - resolution*(d_c/2m)^2 ]
//
// where L_c is the edge weight inside community c and d_c the summed degree of
// its nodes. A graph without edges has modularity 0.
func Modularity(g *graph.Graph, membership []int, resolution float64) float64 {
	m := g.TotalWeight()
	if m == 0 {
		return 0
	}

	internal := make(map[int]float64)
	degree := make(map[int]float64)
	for _, e := range g.Edges() {
		ca, cb := membership[e.From], membership[e.To]
		if ca == cb {
			internal[ca] += e.Weight
		}
		degree[ca] += e.Weight
		degree[cb] += e.Weight
	}

	var q float64
	for c, d := range degree {
		frac := d / (2 * m)
		q += internal[c]/m - resolution*frac*frac
	}
	return q
}
