// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package opensky

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/skytrail/internal/logging"
	"github.com/tomtom215/skytrail/internal/metrics"
)

const breakerName = "opensky-api"

// rawResponse is what a single round trip hands back through the breaker.
type rawResponse struct {
	status     int
	body       []byte
	retryAfter time.Duration
}

// newBreaker builds the upstream circuit breaker:
//   - 1 trial request in half-open state
//   - counts reset every minute while closed
//   - 1 minute open before trying again
//   - opens at >= 60% failures over at least 5 requests
//
// The threshold is lower than a typical API breaker because OpenSky
// traffic is a handful of calls per minute.
func newBreaker() *gobreaker.CircuitBreaker[rawResponse] {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return gobreaker.NewCircuitBreaker[rawResponse](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= 0.6 {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", ratio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})
}

// execute runs fn through the breaker and converts breaker rejections into
// ErrCircuitOpen upstream errors.
func (c *Client) execute(endpoint string, mode AuthMode, fn func() (rawResponse, error)) (rawResponse, error) {
	res, err := c.breaker.Execute(fn)
	if err == nil {
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
		return res, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		logging.Warn().Err(err).Str("endpoint", endpoint).Msg("[CIRCUIT BREAKER] Request rejected")
		return rawResponse{}, &UpstreamError{Kind: KindCircuitOpen, Endpoint: endpoint, Mode: mode, Err: err}
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
	return res, err
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// CircuitState reports the upstream breaker state as closed, half-open or open.
func (c *Client) CircuitState() string {
	return stateToString(c.breaker.State())
}
