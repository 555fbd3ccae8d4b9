// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package opensky

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors matched by *UpstreamError.Is.
var (
	ErrTimeout                = errors.New("upstream request timed out")
	ErrRateLimited            = errors.New("upstream rate limit exceeded")
	ErrAuthenticationRejected = errors.New("upstream rejected credentials")
	ErrUpstreamUnavailable    = errors.New("upstream service unavailable")
	ErrUnexpectedStatus       = errors.New("unexpected upstream status")
	ErrMalformedPayload       = errors.New("malformed upstream payload")
	ErrNotFound               = errors.New("upstream resource not found")
	ErrCircuitOpen            = errors.New("upstream circuit breaker open")
	ErrNetwork                = errors.New("upstream network failure")
)

// ErrorKind classifies an upstream failure.
type ErrorKind int

const (
	KindNetwork ErrorKind = iota
	KindTimeout
	KindRateLimited
	KindAuthenticationRejected
	KindUnavailable
	KindUnexpectedStatus
	KindMalformedPayload
	KindNotFound
	KindCircuitOpen
)

var kindSentinels = map[ErrorKind]error{
	KindNetwork:                ErrNetwork,
	KindTimeout:                ErrTimeout,
	KindRateLimited:            ErrRateLimited,
	KindAuthenticationRejected: ErrAuthenticationRejected,
	KindUnavailable:            ErrUpstreamUnavailable,
	KindUnexpectedStatus:       ErrUnexpectedStatus,
	KindMalformedPayload:       ErrMalformedPayload,
	KindNotFound:               ErrNotFound,
	KindCircuitOpen:            ErrCircuitOpen,
}

// String returns a short label used in logs and metrics.
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindAuthenticationRejected:
		return "unauthorized"
	case KindUnavailable:
		return "unavailable"
	case KindUnexpectedStatus:
		return "unexpected_status"
	case KindMalformedPayload:
		return "malformed"
	case KindNotFound:
		return "not_found"
	case KindCircuitOpen:
		return "circuit_open"
	default:
		return "network"
	}
}

// Quota figures quoted in rate-limit messages.
const (
	authenticatedDailyCredits = 4000
	anonymousDailyCredits     = 400
)

// UpstreamError describes a failed OpenSky call.
type UpstreamError struct {
	Kind     ErrorKind
	Endpoint string
	Status   int
	Mode     AuthMode

	// RetryAfter is set from X-Rate-Limit-Retry-After-Seconds on 429s.
	RetryAfter time.Duration

	// Body holds a truncated copy of the response body for non-2xx answers.
	Body string

	Err error
}

func (e *UpstreamError) Error() string {
	var msg string
	switch e.Kind {
	case KindRateLimited:
		if e.Mode == Authenticated {
			msg = fmt.Sprintf("OpenSky rate limit exceeded (authenticated quota: %d credits/day)", authenticatedDailyCredits)
		} else {
			msg = fmt.Sprintf("OpenSky rate limit exceeded (anonymous quota: %d credits/day); configure CLIENT_ID/CLIENT_SECRET for a higher limit", anonymousDailyCredits)
		}
	case KindAuthenticationRejected:
		if e.Mode == Authenticated {
			msg = "OpenSky rejected the credentials after re-authentication"
		} else {
			msg = "OpenSky rejected the anonymous request (no access token could be obtained)"
		}
	case KindUnavailable:
		msg = "OpenSky is temporarily unavailable"
	case KindTimeout:
		msg = fmt.Sprintf("OpenSky %s request timed out", e.Endpoint)
	case KindUnexpectedStatus:
		msg = fmt.Sprintf("OpenSky %s request failed with status %d", e.Endpoint, e.Status)
	case KindMalformedPayload:
		msg = fmt.Sprintf("OpenSky %s response could not be parsed", e.Endpoint)
	case KindNotFound:
		msg = fmt.Sprintf("OpenSky %s returned no data", e.Endpoint)
	case KindCircuitOpen:
		msg = "OpenSky requests suspended after repeated failures"
	default:
		msg = fmt.Sprintf("OpenSky %s request failed", e.Endpoint)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *UpstreamError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the kind of an *UpstreamError in err's chain, and false
// when err is not an upstream failure.
func KindOf(err error) (ErrorKind, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind, true
	}
	return 0, false
}
