// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package models

import "time"

// Profile is a user's public profile row.
type Profile struct {
	ID              string    `json:"id"`
	SpotifyUserID   string    `json:"spotify_user_id"`
	Nickname        string    `json:"nickname"`
	Bio             string    `json:"bio,omitempty"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Artist is a followed artist as stored in user_artists.
type Artist struct {
	ID         string   `json:"id" validate:"required,max=64"`
	Name       string   `json:"name" validate:"required,max=256"`
	Genres     []string `json:"genres" validate:"max=64,dive,max=128"`
	Popularity int      `json:"popularity" validate:"min=0,max=100"`
	ImageURL   string   `json:"image_url,omitempty" validate:"omitempty,url"`
}

// Match is one recommended user for another user.
type Match struct {
	UserID             string         `json:"user_id"`
	Nickname           string         `json:"nickname"`
	Bio                string         `json:"bio,omitempty"`
	ProfileImageURL    string         `json:"profile_image_url,omitempty"`
	ArtistSimilarity   float64        `json:"artist_similarity"`
	GenreSimilarity    float64        `json:"genre_similarity"`
	CombinedSimilarity float64        `json:"combined_similarity"`
	CommonArtists      []CommonArtist `json:"common_artists"`
	CommonGenres       []string       `json:"common_genres"`
	CommunityID        *int           `json:"community_id"`
	SameCommunity      bool           `json:"is_same_community"`
	MatchScore         float64        `json:"match_score"`
}

// MatchQuery selects matches for one user.
type MatchQuery struct {
	UserID         string
	Threshold      float64
	CommunityBonus float64
	Limit          int
}
