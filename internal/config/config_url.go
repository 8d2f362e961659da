// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// urlRule describes what a configured endpoint may look like.
type urlRule struct {
	schemes  []string
	baseOnly bool // reject paths and query strings
}

var (
	httpBaseURL = urlRule{schemes: []string{"http", "https"}, baseOnly: true}
	natsURL     = urlRule{schemes: []string{"nats", "tls", "ws", "wss"}}
)

// check returns an error prefixed with field when raw does not satisfy r.
func (r urlRule) check(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if !slices.Contains(r.schemes, u.Scheme) {
		return fmt.Errorf("%s scheme must be one of %s, got %q", field, strings.Join(r.schemes, ", "), u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}
	if r.baseOnly {
		if u.Path != "" && u.Path != "/" {
			return fmt.Errorf("%s must be a base URL without a path, got %q", field, u.Path)
		}
		if u.RawQuery != "" {
			return fmt.Errorf("%s must not contain query parameters", field)
		}
	}
	return nil
}
