// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/tunegraph/internal/config"
)

func testConfig(baseURL string) *config.ProviderConfig {
	return &config.ProviderConfig{
		BaseURL:                 baseURL,
		Timeout:                 5 * time.Second,
		RequestsPerSecond:       0,
		Burst:                   1,
		PageSize:                2,
		BreakerFailureThreshold: 2,
		BreakerTimeout:          time.Minute,
	}
}

const pageOne = `{"artists":{"items":[
  {"id":"a1","name":"Alpha","genres":["indie rock"],"popularity":70,
   "images":[{"url":"big","height":640},{"url":"mid","height":320},{"url":"small","height":160}]},
  {"id":"a2","name":"Beta","genres":[],"popularity":10,"images":[{"url":"only","height":640}]}
 ],"next":"https://api.spotify.com/v1/me/following?type=artist&after=a2","cursors":{"after":"a2"},"total":3}}`

const pageTwo = `{"artists":{"items":[
  {"id":"a3","name":"Gamma","genres":["jazz"],"popularity":40,"images":[]}
 ],"next":null,"cursors":{"after":null},"total":3}}`

func TestFollowedArtists_Paginates(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.URL.Path != "/v1/me/following" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Query().Get("type") != "artist" || r.URL.Query().Get("limit") != "2" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("after") {
		case "":
			fmt.Fprint(w, pageOne)
		case "a2":
			fmt.Fprint(w, pageTwo)
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("after"))
		}
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	artists, err := c.FollowedArtists(context.Background(), "tok")
	if err != nil {
		t.Fatalf("FollowedArtists() error = %v", err)
	}

	if len(artists) != 3 {
		t.Fatalf("got %d artists, want 3", len(artists))
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}

	if artists[0].ID != "a1" || artists[0].ImageURL != "small" || artists[0].Genres[0] != "indie rock" {
		t.Errorf("artists[0] = %+v", artists[0])
	}
	if artists[1].ImageURL != "only" {
		t.Errorf("artists[1].ImageURL = %q, want only", artists[1].ImageURL)
	}
	if artists[2].ImageURL != "" || artists[2].Popularity != 40 {
		t.Errorf("artists[2] = %+v", artists[2])
	}
}

func TestSmallestImage(t *testing.T) {
	tests := []struct {
		name   string
		images []imageObject
		want   string
	}{
		{"none", nil, ""},
		{"one", []imageObject{{URL: "a"}}, "a"},
		{"two", []imageObject{{URL: "a"}, {URL: "b"}}, "b"},
		{"three", []imageObject{{URL: "a"}, {URL: "b"}, {URL: "c"}}, "c"},
		{"four", []imageObject{{URL: "a"}, {URL: "b"}, {URL: "c"}, {URL: "d"}}, "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := smallestImage(tt.images); got != tt.want {
				t.Errorf("smallestImage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFollowedArtists_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	for i := 0; i < 3; i++ {
		if _, err := c.FollowedArtists(context.Background(), "expired"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("call %d error = %v, want ErrUnauthorized", i, err)
		}
	}
	if c.BreakerState() != "closed" {
		t.Errorf("BreakerState() = %q, rejected tokens must not trip the breaker", c.BreakerState())
	}
}

func TestFollowedArtists_BreakerOpensOnServerErrors(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))

	for i := 0; i < 2; i++ {
		_, err := c.FollowedArtists(context.Background(), "tok")
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway {
			t.Fatalf("call %d error = %v, want StatusError 502", i, err)
		}
	}

	if _, err := c.FollowedArtists(context.Background(), "tok"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}
	if requests != 2 {
		t.Errorf("server saw %d requests, want 2", requests)
	}
}

func TestFollowedArtists_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"artists":`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	if _, err := c.FollowedArtists(context.Background(), "tok"); err == nil {
		t.Error("expected decode error")
	}
}

func TestFollowedArtists_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, pageTwo)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RequestsPerSecond = 0.001
	c := NewClient(cfg)

	// Drain the single burst token so the next call waits on the limiter.
	if _, err := c.FollowedArtists(context.Background(), "tok"); err != nil {
		t.Fatalf("first call error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.FollowedArtists(ctx, "tok"); err == nil {
		t.Error("expected rate limiter to give up on cancelled context")
	}
}
