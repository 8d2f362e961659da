// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tunegraph/config.yaml",
	"/etc/tunegraph/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:                   "/data/tunegraph.duckdb",
			MaxMemory:              "1GB",
			Threads:                0, // 0 = use runtime.NumCPU()
			PreserveInsertionOrder: true,
			SkipIndexes:            false,
		},
		Server: ServerConfig{
			Port:    3000,
			Host:    "0.0.0.0",
			Timeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   1 * time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Matching: MatchingConfig{
			Threshold:        0.20,
			Resolution:       1.0,
			Seed:             42,
			SaveMode:         SaveModeIncremental,
			ScheduleInterval: 6 * time.Hour,
			RunOnStartup:     false,
			BatchTimeout:     10 * time.Minute,
			MatchLimit:       10,
			CommunityBonus:   0.2,
		},
		Events: EventsConfig{
			Transport:               TransportGoChannel,
			NATSURL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:          false,
			EmbeddedHost:            "127.0.0.1",
			EmbeddedPort:            4222,
			Topic:                   "profile.updated",
			PoisonTopic:             "profile.updated.poison",
			DedupPath:               "",
			DedupTTL:                10 * time.Minute,
			RetryMaxRetries:         5,
			RetryInitialInterval:    500 * time.Millisecond,
			RetryMaxInterval:        30 * time.Second,
			CloseTimeout:            30 * time.Second,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
		},
		Provider: ProviderConfig{
			BaseURL:                 "https://api.spotify.com",
			Timeout:                 15 * time.Second,
			RequestsPerSecond:       5,
			Burst:                   5,
			PageSize:                50,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          60 * time.Second,
		},
	}
}

type configLayer struct {
	name   string
	p      koanf.Provider
	parser koanf.Parser
}

// LoadWithKoanf builds the configuration from three layers, later layers
// winning: struct defaults, an optional YAML file (see findConfigFile), then
// the environment variables listed in envMappings. The result is validated.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	layers := []configLayer{
		{"defaults", structs.Provider(defaultConfig(), "koanf"), nil},
	}
	if path := findConfigFile(); path != "" {
		layers = append(layers, configLayer{"config file " + path, file.Provider(path), yaml.Parser()})
	}
	layers = append(layers, configLayer{"environment", env.ProviderWithValue("", ".", envValue), nil})

	for _, l := range layers {
		if err := k.Load(l.p, l.parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", l.name, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns CONFIG_PATH if that file exists, else the first
// existing entry of DefaultConfigPaths, else "".
func findConfigFile() string {
	candidates := DefaultConfigPaths
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		candidates = append([]string{p}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// listKeys hold comma-separated lists when set from the environment.
var listKeys = map[string]bool{
	"security.cors_origins": true,
}

// envValue maps one environment variable to its config key and value.
// Unmapped variables return an empty key and are ignored.
func envValue(name, value string) (string, interface{}) {
	key := envTransformFunc(name)
	if key == "" || !listKeys[key] {
		return key, value
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return "", nil
	}
	return key, items
}

// envMappings maps environment variable names (lower-cased) to koanf config paths.
var envMappings = map[string]string{
	// Database mappings
	"duckdb_path":         "database.path",
	"duckdb_max_memory":   "database.max_memory",
	"duckdb_threads":      "database.threads",
	"duckdb_skip_indexes": "database.skip_indexes",

	// Server mappings
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",

	// Security mappings
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Matching mappings
	"match_threshold":         "matching.threshold",
	"match_resolution":        "matching.resolution",
	"match_seed":              "matching.seed",
	"match_save_mode":         "matching.save_mode",
	"match_schedule_interval": "matching.schedule_interval",
	"match_run_on_startup":    "matching.run_on_startup",
	"match_batch_timeout":     "matching.batch_timeout",
	"match_limit":             "matching.match_limit",
	"match_community_bonus":   "matching.community_bonus",

	// Trigger queue mappings
	"events_transport":          "events.transport",
	"nats_url":                  "events.nats_url",
	"nats_embedded":             "events.embedded_server",
	"nats_embedded_host":        "events.embedded_host",
	"nats_embedded_port":        "events.embedded_port",
	"events_topic":              "events.topic",
	"events_poison_topic":       "events.poison_topic",
	"events_dedup_path":         "events.dedup_path",
	"events_dedup_ttl":          "events.dedup_ttl",
	"events_retry_max":          "events.retry_max_retries",
	"events_retry_interval":     "events.retry_initial_interval",
	"events_retry_max_interval": "events.retry_max_interval",
	"events_close_timeout":      "events.close_timeout",

	// Provider mappings
	"spotify_api_url":          "provider.base_url",
	"spotify_timeout":          "provider.timeout",
	"spotify_requests_per_sec": "provider.requests_per_second",
	"spotify_burst":            "provider.burst",
	"spotify_page_size":        "provider.page_size",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
//   - MATCH_THRESHOLD -> matching.threshold
//   - EVENTS_TRANSPORT -> events.transport
//
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
