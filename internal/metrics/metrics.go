// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrail_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skytrail_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytrail_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrail_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Upstream Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrail_upstream_requests_total",
			Help: "Total number of OpenSky API calls",
		},
		[]string{"endpoint", "mode", "outcome"}, // outcome: ok, unauthorized, rate_limited, unavailable, timeout, error
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skytrail_upstream_request_duration_seconds",
			Help:    "Duration of OpenSky API calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"endpoint"},
	)

	UpstreamAuthRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skytrail_upstream_auth_retries_total",
			Help: "Requests retried after a 401 with a freshly exchanged token",
		},
	)

	TokenExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrail_token_exchanges_total",
			Help: "OAuth2 client-credentials exchanges",
		},
		[]string{"result"}, // success, failure
	)

	// Snapshot Metrics
	SnapshotFlights = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytrail_snapshot_flights",
			Help: "Number of flights in the current global snapshot",
		},
	)

	SnapshotCaptured = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytrail_snapshot_captured_timestamp",
			Help: "Unix timestamp at which the current global snapshot was captured",
		},
	)

	CacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrail_cache_results_total",
			Help: "Cache lookups by cache and classification",
		},
		[]string{"cache_type", "result"}, // result: fresh, stale, expired, absent, hit, miss
	)

	// Refresh Metrics
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skytrail_refresh_duration_seconds",
			Help:    "Duration of scheduled refresh runs in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 25},
		},
	)

	RefreshErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrail_refresh_errors_total",
			Help: "Total number of failed refresh runs",
		},
		[]string{"error_type"},
	)

	RefreshLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytrail_refresh_last_success_timestamp",
			Help: "Unix timestamp of last successful refresh",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skytrail_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrail_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrail_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skytrail_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skytrail_websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	// Publisher Metrics
	PublishedSnapshots = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skytrail_published_snapshots_total",
			Help: "Snapshots handed to message brokers",
		},
		[]string{"backend", "result"},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpstreamRequest records one upstream HTTP round trip.
func RecordUpstreamRequest(endpoint, mode, outcome string, duration time.Duration) {
	UpstreamRequests.WithLabelValues(endpoint, mode, outcome).Inc()
	UpstreamDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordTokenExchange counts one client-credentials grant attempt.
func RecordTokenExchange(success bool) {
	TokenExchanges.WithLabelValues(resultLabel(success)).Inc()
}

// RecordSnapshot updates the gauges describing the cached global snapshot.
func RecordSnapshot(flights int, captured time.Time) {
	SnapshotFlights.Set(float64(flights))
	SnapshotCaptured.Set(float64(captured.Unix()))
}

// RecordCacheResult counts a cache lookup.
func RecordCacheResult(cacheType, result string) {
	CacheResults.WithLabelValues(cacheType, result).Inc()
}

// RecordRefresh records one refresh run. errorType is ignored on success.
func RecordRefresh(duration time.Duration, err error, errorType string) {
	RefreshDuration.Observe(duration.Seconds())
	if err != nil {
		RefreshErrors.WithLabelValues(errorType).Inc()
		return
	}
	RefreshLastSuccess.SetToCurrentTime()
}

// RecordPublish counts one snapshot publish attempt.
func RecordPublish(backend string, err error) {
	PublishedSnapshots.WithLabelValues(backend, resultLabel(err == nil)).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
