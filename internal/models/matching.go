// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package models

import "time"

// UserAttributeSet is one user's taste profile as loaded for a batch run.
// Artists holds artist identifiers; Genres holds normalized (lower-cased, trimmed) genre names.
// It is rebuilt on every run and never persisted.
type UserAttributeSet struct {
	UserID  string
	Artists map[string]struct{}
	Genres  map[string]struct{}
}

// NewUserAttributeSet returns an empty attribute set for userID.
func NewUserAttributeSet(userID string) *UserAttributeSet {
	return &UserAttributeSet{
		UserID:  userID,
		Artists: make(map[string]struct{}),
		Genres:  make(map[string]struct{}),
	}
}

// ArtistInfo is display information used to resolve common-artist ids.
type ArtistInfo struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// AttributeSnapshot is everything a batch run reads from storage.
// Order lists user ids in load order; full-mode pair enumeration follows it.
type AttributeSnapshot struct {
	Order   []string
	Users   map[string]*UserAttributeSet
	Artists map[string]ArtistInfo
}

// NewAttributeSnapshot returns an empty snapshot.
func NewAttributeSnapshot() *AttributeSnapshot {
	return &AttributeSnapshot{
		Users:   make(map[string]*UserAttributeSet),
		Artists: make(map[string]ArtistInfo),
	}
}

// User returns the attribute set for userID, creating and ordering it on first use.
func (s *AttributeSnapshot) User(userID string) *UserAttributeSet {
	if u, ok := s.Users[userID]; ok {
		return u
	}
	u := NewUserAttributeSet(userID)
	s.Users[userID] = u
	s.Order = append(s.Order, userID)
	return u
}

// CommonArtist is a resolved shared artist stored as similarity evidence.
type CommonArtist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// SimilarityRecord is the similarity between one unordered pair of users.
// UserA < UserB always holds, so each pair is stored exactly once.
type SimilarityRecord struct {
	UserA              string         `json:"user_a_id"`
	UserB              string         `json:"user_b_id"`
	ArtistSimilarity   float64        `json:"artist_similarity"`
	GenreSimilarity    float64        `json:"genre_similarity"`
	CombinedSimilarity float64        `json:"combined_similarity"`
	CommonArtists      []CommonArtist `json:"common_artists"`
	CommonGenres       []string       `json:"common_genres"`
	CalculatedAt       time.Time      `json:"calculated_at,omitempty"`
}

// CommunityAssignment maps a user to a community label.
// Labels are only meaningful within the run that produced them.
type CommunityAssignment struct {
	UserID      string `json:"user_id"`
	CommunityID int    `json:"community_id"`
}
