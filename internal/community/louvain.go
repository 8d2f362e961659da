// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package community

import (
	"math/rand"
	"sort"

	"github.com/tomtom215/tunegraph/internal/graph"
	"github.com/tomtom215/tunegraph/internal/models"
)

// DefaultResolution is the conventional modularity resolution.
const DefaultResolution = 1.0

// DefaultSeed seeds node visiting order when none is configured.
const DefaultSeed int64 = 42

// gainEpsilon is the minimum gain improvement that counts as better.
const gainEpsilon = 1e-12

// Detector partitions a graph with the Louvain method.
type Detector struct {
	// Resolution scales the null-model term. Values above 1 favor smaller
	// communities, below 1 larger ones.
	Resolution float64

	// Seed fixes the node visiting order so runs are reproducible.
	Seed int64
}

// NewDetector returns a detector with the given resolution and seed.
// A non-positive resolution falls back to DefaultResolution.
func NewDetector(resolution float64, seed int64) *Detector {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &Detector{Resolution: resolution, Seed: seed}
}

// level is one (possibly aggregated) graph in the Louvain hierarchy.
// Neighbor lists are sorted so floating point sums are order-stable.
type level struct {
	nbrs [][]int
	wts  [][]float64
	self []float64 // internal weight of each node, each edge counted once
	deg  []float64 // weighted degree; self-loops count twice
}

func (l *level) size() int { return len(l.deg) }

// Partition returns a community label per node index of g. Labels are dense,
// assigned in node order. Isolated nodes get singleton communities.
func (d *Detector) Partition(g *graph.Graph) []int {
	n := g.NodeCount()
	membership := make([]int, n)
	for i := range membership {
		membership[i] = i
	}
	if n == 0 || g.EdgeCount() == 0 {
		return membership
	}

	resolution := d.Resolution
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	rng := rand.New(rand.NewSource(d.Seed)) //nolint:gosec // reproducible ordering, not security

	lvl := fromGraph(g)
	m2 := 0.0
	for _, k := range lvl.deg {
		m2 += k
	}

	for {
		comm, moved := localMove(lvl, resolution, m2, rng)
		if !moved {
			break
		}
		comm, count := renumber(comm)
		for i := range membership {
			membership[i] = comm[membership[i]]
		}
		if count == lvl.size() {
			break
		}
		lvl = aggregate(lvl, comm, count)
	}

	dense, _ := renumber(membership)
	return dense
}

// Detect returns community assignments for every node with at least one edge.
// Labels are dense over the returned rows, in node order. It returns nil when
// the graph has no edges.
func (d *Detector) Detect(g *graph.Graph) []models.CommunityAssignment {
	if g.EdgeCount() == 0 {
		return nil
	}

	membership := d.Partition(g)
	relabel := make(map[int]int)
	out := make([]models.CommunityAssignment, 0, g.NodeCount())
	for i, id := range g.Nodes() {
		if g.Degree(i) == 0 {
			continue
		}
		label, ok := relabel[membership[i]]
		if !ok {
			label = len(relabel)
			relabel[membership[i]] = label
		}
		out = append(out, models.CommunityAssignment{UserID: id, CommunityID: label})
	}
	return out
}

// CountCommunities returns the number of distinct community ids in assignments.
func CountCommunities(assignments []models.CommunityAssignment) int {
	seen := make(map[int]struct{}, len(assignments))
	for _, a := range assignments {
		seen[a.CommunityID] = struct{}{}
	}
	return len(seen)
}

func fromGraph(g *graph.Graph) *level {
	n := g.NodeCount()
	lvl := &level{
		nbrs: make([][]int, n),
		wts:  make([][]float64, n),
		self: make([]float64, n),
		deg:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		adj := g.Neighbors(i)
		keys := make([]int, 0, len(adj))
		for j := range adj {
			keys = append(keys, j)
		}
		sort.Ints(keys)
		lvl.nbrs[i] = keys
		lvl.wts[i] = make([]float64, len(keys))
		for k, j := range keys {
			lvl.wts[i][k] = adj[j]
			lvl.deg[i] += adj[j]
		}
	}
	return lvl
}

// localMove runs phase one: repeatedly move single nodes into the neighboring
// community with the largest modularity gain until no move improves it.
// The gain of joining community C is k_i,in - resolution*tot_C*k_i/2m.
// Ties keep the node where it is; among other ties the lowest community wins.
func localMove(lvl *level, resolution, m2 float64, rng *rand.Rand) ([]int, bool) {
	n := lvl.size()
	comm := make([]int, n)
	tot := make([]float64, n)
	for i := 0; i < n; i++ {
		comm[i] = i
		tot[i] = lvl.deg[i]
	}

	order := rng.Perm(n)
	links := make(map[int]float64)
	candidates := make([]int, 0)
	movedAny := false

	for {
		moved := false
		for _, i := range order {
			if len(lvl.nbrs[i]) == 0 {
				continue
			}
			ki := lvl.deg[i]
			current := comm[i]

			for c := range links {
				delete(links, c)
			}
			candidates = candidates[:0]
			for k, j := range lvl.nbrs[i] {
				c := comm[j]
				if _, ok := links[c]; !ok {
					candidates = append(candidates, c)
				}
				links[c] += lvl.wts[i][k]
			}
			sort.Ints(candidates)

			tot[current] -= ki
			best := current
			bestGain := links[current] - resolution*tot[current]*ki/m2
			for _, c := range candidates {
				if c == current {
					continue
				}
				gain := links[c] - resolution*tot[c]*ki/m2
				if gain > bestGain+gainEpsilon {
					best, bestGain = c, gain
				}
			}
			tot[best] += ki

			if best != current {
				comm[i] = best
				moved = true
				movedAny = true
			}
		}
		if !moved {
			break
		}
	}
	return comm, movedAny
}

// renumber maps labels to 0..k-1 in order of first appearance.
func renumber(labels []int) ([]int, int) {
	mapping := make(map[int]int)
	out := make([]int, len(labels))
	for i, l := range labels {
		dense, ok := mapping[l]
		if !ok {
			dense = len(mapping)
			mapping[l] = dense
		}
		out[i] = dense
	}
	return out, len(mapping)
}

// aggregate builds the next level: one node per community, edges between
// communities summed, and intra-community weight folded into self-loops.
func aggregate(lvl *level, comm []int, count int) *level {
	next := &level{
		nbrs: make([][]int, count),
		wts:  make([][]float64, count),
		self: make([]float64, count),
		deg:  make([]float64, count),
	}
	inter := make([]map[int]float64, count)
	for c := range inter {
		inter[c] = make(map[int]float64)
	}

	for i := 0; i < lvl.size(); i++ {
		ci := comm[i]
		next.self[ci] += lvl.self[i]
		next.deg[ci] += lvl.deg[i]
		for k, j := range lvl.nbrs[i] {
			cj := comm[j]
			w := lvl.wts[i][k]
			if ci == cj {
				// Each internal edge is visited from both endpoints.
				next.self[ci] += w / 2
			} else {
				inter[ci][cj] += w
			}
		}
	}

	for c := 0; c < count; c++ {
		keys := make([]int, 0, len(inter[c]))
		for j := range inter[c] {
			keys = append(keys, j)
		}
		sort.Ints(keys)
		next.nbrs[c] = keys
		next.wts[c] = make([]float64, len(keys))
		for k, j := range keys {
			next.wts[c][k] = inter[c][j]
		}
	}
	return next
}
