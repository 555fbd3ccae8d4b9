// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

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

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/skytrail/config.yaml",
	"/etc/skytrail/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// Upstream endpoints.
const (
	DefaultBaseURL  = "https://opensky-network.org/api"
	DefaultTokenURL = "https://auth.opensky-network.org/auth/realms/opensky-network/protocol/openid-connect/token"
)

func defaultConfig() *Config {
	return &Config{
		OpenSky: OpenSkyConfig{
			BaseURL:           DefaultBaseURL,
			TokenURL:          DefaultTokenURL,
			UserAgent:         "skytrail/1.0 (+https://github.com/tomtom215/skytrail)",
			Timeout:           30 * time.Second,
			RequestsPerMinute: 30,
			TokenLeeway:       5 * time.Minute,
		},
		Snapshot: SnapshotConfig{
			FreshWindow: 10 * time.Second,
			MaxWindow:   60 * time.Second,
			Store:       StoreMemory,
			BadgerPath:  "/data/skytrail/snapshots",
			NATSBucket:  "skytrail_snapshots",
		},
		Refresh: RefreshConfig{
			Interval: 0,
			Timeout:  25 * time.Second,
		},
		Tracks: TracksConfig{
			CacheTTL: 30 * time.Second,
		},
		Publish: PublishConfig{
			KafkaTopic:   "skytrail.flights",
			NATSSubject:  "skytrail.snapshots",
			NATSPort:     4222,
			NATSStoreDir: "/data/skytrail/nats",
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    3000,
			Timeout: 45 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf layers defaults, config file and environment.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are provided as comma-separated strings by the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"publish.kafka_brokers",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := make([]string, 0, strings.Count(s, ",")+1)
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"client_id":                   "opensky.client_id",
	"client_secret":               "opensky.client_secret",
	"opensky_base_url":            "opensky.base_url",
	"opensky_token_url":           "opensky.token_url",
	"opensky_user_agent":          "opensky.user_agent",
	"opensky_timeout":             "opensky.timeout",
	"opensky_requests_per_minute": "opensky.requests_per_minute",
	"token_leeway":                "opensky.token_leeway",

	"snapshot_fresh_window": "snapshot.fresh_window",
	"snapshot_max_window":   "snapshot.max_window",
	"snapshot_store":        "snapshot.store",
	"snapshot_badger_path":  "snapshot.badger_path",
	"snapshot_nats_bucket":  "snapshot.nats_bucket",

	"cron_secret":      "refresh.cron_secret",
	"refresh_interval": "refresh.interval",
	"refresh_timeout":  "refresh.timeout",

	"track_cache_ttl": "tracks.cache_ttl",

	"kafka_brokers":  "publish.kafka_brokers",
	"kafka_topic":    "publish.kafka_topic",
	"nats_url":       "publish.nats_url",
	"nats_subject":   "publish.nats_subject",
	"nats_embedded":  "publish.nats_embedded",
	"nats_port":      "publish.nats_port",
	"nats_store_dir": "publish.nats_store_dir",

	"http_host":      "server.host",
	"http_port":      "server.port",
	"server_timeout": "server.timeout",

	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"rate_limit_disabled": "security.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps CLIENT_ID -> opensky.client_id, HTTP_PORT -> server.port
// and so on. Returning "" makes koanf skip the variable.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
