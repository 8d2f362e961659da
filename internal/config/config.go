// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

// Package config loads and validates Tunegraph configuration.
//
// Configuration is layered with Koanf: built-in defaults, then an optional
// YAML file, then environment variables. See LoadWithKoanf for the
// precedence rules and envTransformFunc for the supported variable names.
package config

import "time"

// Save modes select what a profile save triggers.
const (
	// SaveModeIncremental recomputes only the saved user's pairs (O(n)) and upserts them.
	SaveModeIncremental = "incremental"
	// SaveModeFull reruns the whole O(n^2) batch and replaces every similarity row.
	SaveModeFull = "full"
)

// Event transports for the recompute trigger queue.
const (
	// TransportGoChannel delivers triggers in-process.
	TransportGoChannel = "gochannel"
	// TransportNATS delivers triggers over core NATS.
	TransportNATS = "nats"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Matching MatchingConfig `koanf:"matching"`
	Events   EventsConfig   `koanf:"events"`
	Provider ProviderConfig `koanf:"provider"`
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`                  // Number of DuckDB threads (0 = use NumCPU)
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"` // Whether to preserve insertion order (default true)
	SkipIndexes            bool   `koanf:"skip_indexes"`             // Skip secondary index creation (fast test setup)
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port    int           `koanf:"port"`
	Host    string        `koanf:"host"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig holds rate limiting and CORS settings
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// MatchingConfig controls the similarity batch and community detection.
type MatchingConfig struct {
	// Threshold is the minimum combined similarity for a pair to become a graph edge.
	// Pairs exactly at the threshold are included.
	Threshold float64 `koanf:"threshold"`

	// Resolution scales the modularity null-model term. 1.0 is the conventional default;
	// higher values favour smaller communities.
	Resolution float64 `koanf:"resolution"`

	// Seed drives the node visiting order of the Louvain passes.
	Seed int64 `koanf:"seed"`

	// SaveMode is what a profile save triggers: incremental or full.
	SaveMode string `koanf:"save_mode"`

	// ScheduleInterval runs the full batch periodically. Zero disables the scheduler.
	ScheduleInterval time.Duration `koanf:"schedule_interval"`

	// RunOnStartup runs one full batch when the scheduler starts.
	RunOnStartup bool `koanf:"run_on_startup"`

	// BatchTimeout bounds a single batch run.
	BatchTimeout time.Duration `koanf:"batch_timeout"`

	// MatchLimit is the default number of matches returned per user.
	MatchLimit int `koanf:"match_limit"`

	// CommunityBonus is added to the match score of users in the same community.
	CommunityBonus float64 `koanf:"community_bonus"`
}

// EventsConfig holds the recompute trigger queue settings.
type EventsConfig struct {
	Transport      string `koanf:"transport"` // gochannel or nats
	NATSURL        string `koanf:"nats_url"`
	EmbeddedServer bool   `koanf:"embedded_server"` // Start an in-process NATS server
	EmbeddedHost   string `koanf:"embedded_host"`
	EmbeddedPort   int    `koanf:"embedded_port"`

	Topic       string `koanf:"topic"`
	PoisonTopic string `koanf:"poison_topic"`

	// DedupPath is the badger directory for trigger deduplication. Empty keeps it in memory.
	DedupPath string        `koanf:"dedup_path"`
	DedupTTL  time.Duration `koanf:"dedup_ttl"`

	RetryMaxRetries      int           `koanf:"retry_max_retries"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval"`
	CloseTimeout         time.Duration `koanf:"close_timeout"`

	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
}

// ProviderConfig holds the profile-data provider (Spotify Web API) settings.
type ProviderConfig struct {
	BaseURL           string        `koanf:"base_url"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
	PageSize          int           `koanf:"page_size"`

	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
}

// Load reads configuration from defaults, an optional config file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
