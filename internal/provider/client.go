// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

// Package provider fetches followed artists from the Spotify Web API.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tunegraph/internal/config"
	"github.com/tomtom215/tunegraph/internal/logging"
	"github.com/tomtom215/tunegraph/internal/metrics"
	"github.com/tomtom215/tunegraph/internal/models"
)

var (
	// ErrUnauthorized is returned when the access token is rejected.
	ErrUnauthorized = errors.New("provider rejected access token")

	// ErrCircuitOpen is returned while the provider breaker is open.
	ErrCircuitOpen = errors.New("provider circuit open")
)

const (
	followingEndpoint = "/v1/me/following"
	breakerName       = "spotify-api"

	// maxPages bounds pagination against a misbehaving cursor.
	maxPages = 200

	maxErrorBody = 4096
)

// StatusError is a non-2xx response other than 401.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is a rate-limited, breaker-protected Spotify client.
type Client struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[any]
}

// NewClient creates a client from cfg.
func NewClient(cfg *config.ProviderConfig) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 50 {
		pageSize = 50
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	threshold := cfg.BreakerFailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		pageSize: pageSize,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
		breaker: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        breakerName,
			MaxRequests: 1,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			// A rejected token says nothing about provider health.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrUnauthorized)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
					Msg("Provider circuit breaker state changed")
				metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
			},
		}),
	}
}

type followingResponse struct {
	Artists struct {
		Items   []artistObject `json:"items"`
		Next    *string        `json:"next"`
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
		Total int `json:"total"`
	} `json:"artists"`
}

type artistObject struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Genres     []string      `json:"genres"`
	Popularity int           `json:"popularity"`
	Images     []imageObject `json:"images"`
}

type imageObject struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// FollowedArtists returns every artist the token's owner follows, in
// provider order, following cursor pagination until exhausted.
func (c *Client) FollowedArtists(ctx context.Context, accessToken string) ([]models.Artist, error) {
	var (
		artists []models.Artist
		after   string
	)

	for page := 0; page < maxPages; page++ {
		resp, err := c.fetchFollowingPage(ctx, accessToken, after)
		if err != nil {
			return nil, err
		}

		for i := range resp.Artists.Items {
			artists = append(artists, toArtist(&resp.Artists.Items[i]))
		}

		next := resp.Artists.Cursors.After
		if resp.Artists.Next == nil || next == "" || next == after {
			logging.Ctx(ctx).Debug().Int("artists", len(artists)).Int("pages", page+1).Msg("Fetched followed artists")
			return artists, nil
		}
		after = next
	}

	return nil, fmt.Errorf("followed artists: more than %d pages", maxPages)
}

func (c *Client) fetchFollowingPage(ctx context.Context, accessToken, after string) (*followingResponse, error) {
	q := url.Values{}
	q.Set("type", "artist")
	q.Set("limit", strconv.Itoa(c.pageSize))
	if after != "" {
		q.Set("after", after)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	v, err := c.breaker.Execute(func() (any, error) {
		return c.get(ctx, followingEndpoint, q, accessToken)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	return v.(*followingResponse), nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, accessToken string) (*followingResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordProviderRequest(endpoint, "error", time.Since(start))
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Debug().Err(cerr).Msg("Failed to close provider response body")
		}
	}()
	metrics.RecordProviderRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out followingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return &out, nil
}

// toArtist converts the wire object. The stored image is the smallest one
// the provider lists (images are ordered largest first).
func toArtist(a *artistObject) models.Artist {
	return models.Artist{
		ID:         a.ID,
		Name:       a.Name,
		Genres:     a.Genres,
		Popularity: a.Popularity,
		ImageURL:   smallestImage(a.Images),
	}
}

func smallestImage(images []imageObject) string {
	switch {
	case len(images) > 2:
		return images[2].URL
	case len(images) == 2:
		return images[1].URL
	case len(images) == 1:
		return images[0].URL
	default:
		return ""
	}
}

// BreakerState returns the breaker state name.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}
