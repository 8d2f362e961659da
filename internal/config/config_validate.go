// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateMatching(); err != nil {
		return err
	}

	if err := c.validateEvents(); err != nil {
		return err
	}

	if err := c.validateProvider(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DUCKDB_PATH must not be empty")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be non-negative, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Security.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	if m.Threshold <= 0 || m.Threshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be in (0, 1], got %f", m.Threshold)
	}
	if m.Resolution <= 0 {
		return fmt.Errorf("MATCH_RESOLUTION must be positive, got %f", m.Resolution)
	}
	if m.SaveMode != SaveModeIncremental && m.SaveMode != SaveModeFull {
		return fmt.Errorf("MATCH_SAVE_MODE must be %q or %q, got %q", SaveModeIncremental, SaveModeFull, m.SaveMode)
	}
	if m.ScheduleInterval < 0 {
		return fmt.Errorf("MATCH_SCHEDULE_INTERVAL must be non-negative, got %v", m.ScheduleInterval)
	}
	if m.BatchTimeout <= 0 {
		return fmt.Errorf("MATCH_BATCH_TIMEOUT must be positive, got %v", m.BatchTimeout)
	}
	if m.MatchLimit < 1 || m.MatchLimit > 50 {
		return fmt.Errorf("MATCH_LIMIT must be between 1 and 50, got %d", m.MatchLimit)
	}
	if m.CommunityBonus < 0 || m.CommunityBonus > 1 {
		return fmt.Errorf("MATCH_COMMUNITY_BONUS must be in [0, 1], got %f", m.CommunityBonus)
	}
	return nil
}

func (c *Config) validateEvents() error {
	e := c.Events
	switch e.Transport {
	case TransportGoChannel:
	case TransportNATS:
		if !e.EmbeddedServer {
			if err := natsURL.check("NATS_URL", e.NATSURL); err != nil {
				return err
			}
		}
		if e.EmbeddedServer && (e.EmbeddedPort < 1 || e.EmbeddedPort > 65535) {
			return fmt.Errorf("NATS_EMBEDDED_PORT must be between 1 and 65535, got %d", e.EmbeddedPort)
		}
	default:
		return fmt.Errorf("EVENTS_TRANSPORT must be %q or %q, got %q", TransportGoChannel, TransportNATS, e.Transport)
	}

	if e.Topic == "" {
		return fmt.Errorf("EVENTS_TOPIC must not be empty")
	}
	if e.PoisonTopic == e.Topic {
		return fmt.Errorf("EVENTS_POISON_TOPIC must differ from EVENTS_TOPIC")
	}
	if e.RetryMaxRetries < 0 {
		return fmt.Errorf("EVENTS_RETRY_MAX must be non-negative, got %d", e.RetryMaxRetries)
	}
	if e.DedupTTL <= 0 {
		return fmt.Errorf("EVENTS_DEDUP_TTL must be positive, got %v", e.DedupTTL)
	}
	return nil
}

func (c *Config) validateProvider() error {
	p := c.Provider
	if err := httpBaseURL.check("SPOTIFY_API_URL", p.BaseURL); err != nil {
		return err
	}
	if p.RequestsPerSecond <= 0 {
		return fmt.Errorf("SPOTIFY_REQUESTS_PER_SEC must be positive, got %f", p.RequestsPerSecond)
	}
	if p.Burst < 1 {
		return fmt.Errorf("SPOTIFY_BURST must be at least 1, got %d", p.Burst)
	}
	if p.PageSize < 1 || p.PageSize > 50 {
		return fmt.Errorf("SPOTIFY_PAGE_SIZE must be between 1 and 50, got %d", p.PageSize)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
