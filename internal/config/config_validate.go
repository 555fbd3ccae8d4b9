// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package config

import (
	"fmt"
	"net/url"

	"github.com/tomtom215/skytrail/internal/logging"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOpenSky(); err != nil {
		return err
	}
	if err := c.validateSnapshot(); err != nil {
		return err
	}
	if err := c.validateRefresh(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateOpenSky() error {
	if err := validateHTTPURL(c.OpenSky.BaseURL, "OPENSKY_BASE_URL"); err != nil {
		return err
	}
	if err := validateHTTPURL(c.OpenSky.TokenURL, "OPENSKY_TOKEN_URL"); err != nil {
		return err
	}
	if c.OpenSky.Timeout <= 0 {
		return fmt.Errorf("OPENSKY_TIMEOUT must be positive")
	}
	if c.OpenSky.RequestsPerMinute < 0 {
		return fmt.Errorf("OPENSKY_REQUESTS_PER_MINUTE must not be negative")
	}
	if c.OpenSky.TokenLeeway < 0 {
		return fmt.Errorf("TOKEN_LEEWAY must not be negative")
	}
	// A half-configured credential pair falls back to anonymous access.
	if (c.OpenSky.ClientID == "") != (c.OpenSky.ClientSecret == "") {
		logging.Warn().Msg("Only one of CLIENT_ID/CLIENT_SECRET is set; using anonymous access")
	}
	return nil
}

func (c *Config) validateSnapshot() error {
	if c.Snapshot.FreshWindow <= 0 {
		return fmt.Errorf("SNAPSHOT_FRESH_WINDOW must be positive")
	}
	if c.Snapshot.MaxWindow <= c.Snapshot.FreshWindow {
		return fmt.Errorf("SNAPSHOT_MAX_WINDOW (%s) must be greater than SNAPSHOT_FRESH_WINDOW (%s)",
			c.Snapshot.MaxWindow, c.Snapshot.FreshWindow)
	}
	switch c.Snapshot.Store {
	case StoreMemory:
	case StoreBadger:
		if c.Snapshot.BadgerPath == "" {
			return fmt.Errorf("SNAPSHOT_BADGER_PATH is required when SNAPSHOT_STORE=badger")
		}
	case StoreNATS:
		if !c.Publish.NATSEnabled() {
			return fmt.Errorf("NATS_URL or NATS_EMBEDDED is required when SNAPSHOT_STORE=nats")
		}
		if c.Snapshot.NATSBucket == "" {
			return fmt.Errorf("SNAPSHOT_NATS_BUCKET is required when SNAPSHOT_STORE=nats")
		}
	default:
		return fmt.Errorf("SNAPSHOT_STORE must be one of %q, %q or %q, got %q",
			StoreMemory, StoreBadger, StoreNATS, c.Snapshot.Store)
	}
	return nil
}

func (c *Config) validateRefresh() error {
	if c.Refresh.Timeout <= 0 {
		return fmt.Errorf("REFRESH_TIMEOUT must be positive")
	}
	if c.Refresh.Interval < 0 {
		return fmt.Errorf("REFRESH_INTERVAL must not be negative")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if !c.Security.RateLimitDisabled && c.Security.RateLimitRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1 when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func validateHTTPURL(raw, name string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", name)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
