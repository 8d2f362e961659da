// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tunegraph/internal/models"
)

// JSON columns are stored as TEXT and decoded once here, at the storage boundary.

// decodeGenres parses a genres column and normalizes each entry
// (lower-cased, trimmed, empty entries dropped). NULL and "" decode to nil.
func decodeGenres(raw sql.NullString) ([]string, error) {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil, nil
	}

	var genres []string
	if err := json.Unmarshal([]byte(raw.String), &genres); err != nil {
		return nil, fmt.Errorf("invalid genres JSON: %w", err)
	}

	out := genres[:0]
	for _, g := range genres {
		g = strings.ToLower(strings.TrimSpace(g))
		if g != "" {
			out = append(out, g)
		}
	}
	return out, nil
}

// encodeStrings encodes a string slice as a JSON array; nil encodes as [].
func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// encodeArtists encodes common-artist evidence as a JSON array; nil encodes as [].
func encodeArtists(artists []models.CommonArtist) (string, error) {
	if artists == nil {
		artists = []models.CommonArtist{}
	}
	b, err := json.Marshal(artists)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeStrings(raw string) ([]string, error) {
	out := []string{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}, err
	}
	return out, nil
}

func decodeArtists(raw string) ([]models.CommonArtist, error) {
	out := []models.CommonArtist{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []models.CommonArtist{}, err
	}
	return out, nil
}
