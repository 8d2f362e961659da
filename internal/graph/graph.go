// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

// Package graph builds the in-memory user similarity graph for a batch run.
//
// Every user is a node, including users with no qualifying edges. An edge joins
// two users whose combined similarity is at or above the threshold, weighted by
// that similarity. Graphs are rebuilt every run and never persisted.
package graph

import (
	"github.com/tomtom215/tunegraph/internal/models"
)

// Edge is one undirected weighted edge between two node indexes.
type Edge struct {
	From   int
	To     int
	Weight float64
}

// Graph is an undirected weighted graph over user ids.
// Node indexes follow insertion order.
type Graph struct {
	nodes []string
	index map[string]int
	adj   []map[int]float64
	edges []Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// Build constructs a graph with one node per user id (in the given order) and one
// edge per record with CombinedSimilarity >= threshold. Records that reference
// unknown users add those users as nodes.
func Build(userIDs []string, sims []models.SimilarityRecord, threshold float64) *Graph {
	g := New()
	for _, id := range userIDs {
		g.AddNode(id)
	}
	for i := range sims {
		s := &sims[i]
		if s.CombinedSimilarity >= threshold {
			g.AddEdge(s.UserA, s.UserB, s.CombinedSimilarity)
		}
	}
	return g
}

// AddNode adds id if not present and returns its index.
func (g *Graph) AddNode(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	i := len(g.nodes)
	g.nodes = append(g.nodes, id)
	g.index[id] = i
	g.adj = append(g.adj, make(map[int]float64))
	return i
}

// AddEdge adds an undirected edge. Self-loops and repeated pairs are ignored;
// callers supply each unordered pair at most once.
func (g *Graph) AddEdge(a, b string, weight float64) {
	if a == b {
		return
	}
	i, j := g.AddNode(a), g.AddNode(b)
	if _, exists := g.adj[i][j]; exists {
		return
	}
	g.adj[i][j] = weight
	g.adj[j][i] = weight
	g.edges = append(g.edges, Edge{From: i, To: j, Weight: weight})
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Nodes returns node ids in index order. The slice must not be modified.
func (g *Graph) Nodes() []string { return g.nodes }

// Node returns the id at index i.
func (g *Graph) Node(i int) string { return g.nodes[i] }

// Index returns the index of id.
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Edges returns edges in insertion order. The slice must not be modified.
func (g *Graph) Edges() []Edge { return g.edges }

// Neighbors returns the weighted neighbors of node i. The map must not be modified.
func (g *Graph) Neighbors(i int) map[int]float64 { return g.adj[i] }

// Degree returns the number of edges incident to node i.
func (g *Graph) Degree(i int) int { return len(g.adj[i]) }

// Weight returns the edge weight between a and b, or 0 if they are not adjacent.
func (g *Graph) Weight(a, b string) float64 {
	i, ok := g.index[a]
	if !ok {
		return 0
	}
	j, ok := g.index[b]
	if !ok {
		return 0
	}
	return g.adj[i][j]
}

// TotalWeight returns the sum of all edge weights (m in the modularity formula).
func (g *Graph) TotalWeight() float64 {
	var m float64
	for _, e := range g.edges {
		m += e.Weight
	}
	return m
}

// ConnectedNodes returns the ids of nodes with at least one edge, in index order.
func (g *Graph) ConnectedNodes() []string {
	out := make([]string, 0, len(g.nodes))
	for i, id := range g.nodes {
		if len(g.adj[i]) > 0 {
			out = append(out, id)
		}
	}
	return out
}
