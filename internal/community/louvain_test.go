// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package community

import (
	"reflect"
	"testing"

	"github.com/tomtom215/tunegraph/internal/graph"
	"github.com/tomtom215/tunegraph/internal/models"
)

// twoTriangles returns two dense triangles joined by one weak bridge (a1-b1).
func twoTriangles() *graph.Graph {
	g := graph.New()
	for _, id := range []string{"a1", "a2", "a3", "b1", "b2", "b3"} {
		g.AddNode(id)
	}
	g.AddEdge("a1", "a2", 1)
	g.AddEdge("a2", "a3", 1)
	g.AddEdge("a1", "a3", 1)
	g.AddEdge("b1", "b2", 1)
	g.AddEdge("b2", "b3", 1)
	g.AddEdge("b1", "b3", 1)
	g.AddEdge("a1", "b1", 0.1)
	return g
}

func labelsByID(assignments []models.CommunityAssignment) map[string]int {
	out := make(map[string]int, len(assignments))
	for _, a := range assignments {
		out[a.UserID] = a.CommunityID
	}
	return out
}

func TestDetect_PairAndIsolatedNode(t *testing.T) {
	g := graph.Build(
		[]string{"A", "B", "C"},
		[]models.SimilarityRecord{
			{UserA: "A", UserB: "B", CombinedSimilarity: 0.30},
			{UserA: "A", UserB: "C"},
			{UserA: "B", UserB: "C"},
		},
		0.20,
	)

	d := NewDetector(DefaultResolution, DefaultSeed)
	assignments := d.Detect(g)
	labels := labelsByID(assignments)

	if len(assignments) != 2 {
		t.Fatalf("Detect() returned %d rows, want 2 (isolated C has no row): %+v", len(assignments), assignments)
	}
	if _, ok := labels["C"]; ok {
		t.Error("isolated node C should not be assigned")
	}
	if labels["A"] != labels["B"] {
		t.Errorf("A and B in different communities: %v", labels)
	}

	membership := d.Partition(g)
	if membership[0] != membership[1] {
		t.Errorf("Partition() split A and B: %v", membership)
	}
	if membership[2] == membership[0] {
		t.Errorf("Partition() put C with A and B: %v", membership)
	}
}

func TestDetect_NoEdges(t *testing.T) {
	g := graph.Build([]string{"A", "B", "C"}, nil, 0.2)

	d := NewDetector(DefaultResolution, DefaultSeed)
	if got := d.Detect(g); got != nil {
		t.Errorf("Detect() on edgeless graph = %v, want nil", got)
	}
	if got := d.Partition(g); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("Partition() on edgeless graph = %v, want singletons", got)
	}
}

func TestDetect_TwoCliques(t *testing.T) {
	g := twoTriangles()
	d := NewDetector(DefaultResolution, DefaultSeed)

	labels := labelsByID(d.Detect(g))
	if labels["a1"] != labels["a2"] || labels["a2"] != labels["a3"] {
		t.Errorf("triangle a split: %v", labels)
	}
	if labels["b1"] != labels["b2"] || labels["b2"] != labels["b3"] {
		t.Errorf("triangle b split: %v", labels)
	}
	if labels["a1"] == labels["b1"] {
		t.Errorf("triangles merged: %v", labels)
	}
}

func TestDetect_Resolution(t *testing.T) {
	tests := []struct {
		name       string
		resolution float64
		want       int
	}{
		{"low resolution merges everything", 0.001, 1},
		{"default resolution", 1.0, 2},
		{"high resolution keeps singletons", 100, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(tt.resolution, DefaultSeed)
			if got := CountCommunities(d.Detect(twoTriangles())); got != tt.want {
				t.Errorf("CountCommunities() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPartition_DeterministicForSeed(t *testing.T) {
	g := twoTriangles()

	first := NewDetector(1.0, 7).Partition(g)
	second := NewDetector(1.0, 7).Partition(g)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same seed gave different labels: %v vs %v", first, second)
	}
}

func TestPartition_StableAcrossSeeds(t *testing.T) {
	g := twoTriangles()
	want := samePartition(NewDetector(1.0, 1).Partition(g))

	for _, seed := range []int64{2, 3, 42, 1000} {
		got := samePartition(NewDetector(1.0, seed).Partition(g))
		if !reflect.DeepEqual(got, want) {
			t.Errorf("seed %d partition = %v, want %v", seed, got, want)
		}
	}
}

// samePartition reports, for each node pair i<j, whether they share a community.
func samePartition(membership []int) []bool {
	var out []bool
	for i := range membership {
		for j := i + 1; j < len(membership); j++ {
			out = append(out, membership[i] == membership[j])
		}
	}
	return out
}

func TestPartition_DenseLabelsInNodeOrder(t *testing.T) {
	membership := NewDetector(1.0, DefaultSeed).Partition(twoTriangles())
	if membership[0] != 0 {
		t.Errorf("first node label = %d, want 0", membership[0])
	}
	maxLabel := 0
	for _, l := range membership {
		if l > maxLabel+1 {
			t.Fatalf("labels not dense in node order: %v", membership)
		}
		if l > maxLabel {
			maxLabel = l
		}
	}
}

func TestModularity(t *testing.T) {
	g := twoTriangles()

	split := []int{0, 0, 0, 1, 1, 1}
	single := []int{0, 0, 0, 0, 0, 0}
	singletons := []int{0, 1, 2, 3, 4, 5}

	qSplit := Modularity(g, split, 1.0)
	qSingle := Modularity(g, single, 1.0)
	qSingletons := Modularity(g, singletons, 1.0)

	if qSingle > 1e-9 || qSingle < -1e-9 {
		t.Errorf("single-community modularity = %v, want 0", qSingle)
	}
	if qSplit <= qSingle || qSplit <= qSingletons {
		t.Errorf("split Q = %v should beat single %v and singletons %v", qSplit, qSingle, qSingletons)
	}

	found := Modularity(g, NewDetector(1.0, DefaultSeed).Partition(g), 1.0)
	if found < qSplit-1e-9 {
		t.Errorf("detected partition Q = %v, below known split %v", found, qSplit)
	}

	if q := Modularity(graph.Build([]string{"x"}, nil, 0.2), []int{0}, 1.0); q != 0 {
		t.Errorf("edgeless modularity = %v, want 0", q)
	}
}

func TestCountCommunities(t *testing.T) {
	got := CountCommunities([]models.CommunityAssignment{
		{UserID: "a", CommunityID: 0},
		{UserID: "b", CommunityID: 0},
		{UserID: "c", CommunityID: 3},
	})
	if got != 2 {
		t.Errorf("CountCommunities() = %d, want 2", got)
	}
	if CountCommunities(nil) != 0 {
		t.Error("CountCommunities(nil) should be 0")
	}
}
