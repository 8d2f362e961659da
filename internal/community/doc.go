// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

/*
Package community partitions the similarity graph into taste communities.

Detection uses the Louvain method. Phase one moves single nodes between
neighboring communities while modularity improves; phase two collapses each
community into one node (intra-community weight becomes a self-loop) and the
process repeats on the smaller graph until nothing moves.

Determinism:

Nodes are visited in an order shuffled by a seeded generator. Given the same
graph and seed, Partition always returns the same labels. When two moves have
equal gain the node stays put, otherwise the lowest community index wins.

Labels are dense integers in node order. They are only comparable within one
run; two runs over the same data agree on the partition, not on label values.

Graphs with no edges are not clustered: Detect returns nil and callers clear
any stored assignments instead of writing singleton communities.
*/
package community
