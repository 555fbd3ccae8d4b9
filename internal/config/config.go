// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

// Package config loads Skytrail configuration.
//
// Values are layered with Koanf v2: struct defaults, then an optional YAML
// file (CONFIG_PATH, ./config.yaml, /etc/skytrail/config.yaml), then
// environment variables. Config is immutable after Load returns.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	OpenSky  OpenSkyConfig  `koanf:"opensky"`
	Snapshot SnapshotConfig `koanf:"snapshot"`
	Refresh  RefreshConfig  `koanf:"refresh"`
	Tracks   TracksConfig   `koanf:"tracks"`
	Publish  PublishConfig  `koanf:"publish"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// OpenSkyConfig configures the upstream client and its credentials.
//
// Environment Variables:
//   - CLIENT_ID, CLIENT_SECRET: OAuth2 client credentials. Both must be set
//     for authenticated mode; otherwise requests go out anonymously.
//   - OPENSKY_BASE_URL, OPENSKY_TOKEN_URL: endpoint overrides
//   - OPENSKY_USER_AGENT: User-Agent sent upstream
//   - OPENSKY_TIMEOUT: interactive request bound (default: 30s)
//   - OPENSKY_REQUESTS_PER_MINUTE: client-side pacing, 0 disables (default: 30)
//   - TOKEN_LEEWAY: how long before expiry a token stops being used (default: 5m)
type OpenSkyConfig struct {
	ClientID          string        `koanf:"client_id"`
	ClientSecret      string        `koanf:"client_secret"`
	BaseURL           string        `koanf:"base_url"`
	TokenURL          string        `koanf:"token_url"`
	UserAgent         string        `koanf:"user_agent"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerMinute int           `koanf:"requests_per_minute"`
	TokenLeeway       time.Duration `koanf:"token_leeway"`
}

// HasCredentials reports whether both halves of the client credentials are set.
func (c OpenSkyConfig) HasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// SnapshotConfig configures the global snapshot cache.
//
// Environment Variables:
//   - SNAPSHOT_FRESH_WINDOW: age below which a snapshot is served (default: 10s)
//   - SNAPSHOT_MAX_WINDOW: age at which a snapshot counts as expired (default: 60s)
//   - SNAPSHOT_STORE: memory, badger or nats (default: memory)
//   - SNAPSHOT_BADGER_PATH: directory for the badger store
//   - SNAPSHOT_NATS_BUCKET: JetStream key-value bucket, uses NATS_URL or NATS_EMBEDDED
type SnapshotConfig struct {
	FreshWindow time.Duration `koanf:"fresh_window"`
	MaxWindow   time.Duration `koanf:"max_window"`
	Store       string        `koanf:"store"`
	BadgerPath  string        `koanf:"badger_path"`
	NATSBucket  string        `koanf:"nats_bucket"`
}

// Snapshot store backends.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
	StoreNATS   = "nats"
)

// RefreshConfig configures the scheduled refresher.
//
// Environment Variables:
//   - CRON_SECRET: bearer token required by the cron trigger; empty disables the check
//   - REFRESH_INTERVAL: in-process refresh period, 0 disables the ticker (default: 0)
//   - REFRESH_TIMEOUT: bound for one refresh run (default: 25s)
type RefreshConfig struct {
	CronSecret string        `koanf:"cron_secret"`
	Interval   time.Duration `koanf:"interval"`
	Timeout    time.Duration `koanf:"timeout"`
}

// TracksConfig configures per-aircraft track lookups.
type TracksConfig struct {
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// PublishConfig enables snapshot fan-out to brokers. Each publisher is
// enabled by setting its address.
type PublishConfig struct {
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`
	NATSURL      string   `koanf:"nats_url"`
	NATSSubject  string   `koanf:"nats_subject"`
	// NATSEmbedded starts an in-process JetStream server and points
	// NATSURL at it.
	NATSEmbedded bool   `koanf:"nats_embedded"`
	NATSPort     int    `koanf:"nats_port"`
	NATSStoreDir string `koanf:"nats_store_dir"`
}

// NATSEnabled reports whether any NATS connection is configured.
func (c *PublishConfig) NATSEnabled() bool {
	return c.NATSURL != "" || c.NATSEmbedded
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig holds CORS and rate-limit settings for the public API.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, the optional config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
