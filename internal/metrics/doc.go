// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

/*
Package metrics defines the Prometheus collectors exported on /metrics.

# Overview

The package covers:
  - HTTP request latency and throughput
  - Upstream OpenSky calls by endpoint and outcome
  - OAuth2 token exchanges and 401 re-authentication retries
  - Snapshot cache state and refresh runs
  - Circuit breaker state transitions
  - WebSocket clients and broker publishes

All collectors are registered on the default registry through promauto, so
importing the package is enough to expose them.

# Upstream Quota

The OpenSky daily quota is the scarcest resource in the system. The
skytrail_upstream_requests_total counter, split by outcome, is the number to
alert on:

	sum(increase(skytrail_upstream_requests_total[24h]))
*/
package metrics
