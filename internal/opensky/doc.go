// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

/*
Package opensky is the client for the OpenSky Network REST API.

# Overview

The package owns everything that talks to OpenSky:
  - TokenCache: OAuth2 client-credentials token with an expiry leeway
  - Client: states and track requests with bounded timeouts
  - UpstreamError: the error taxonomy surfaced to callers

# Authentication

Requests are authenticated when CLIENT_ID and CLIENT_SECRET are configured
and a token can be obtained. Any failure to obtain a token degrades the
request to anonymous access instead of failing it. BuildHeaders returns the
AuthMode next to the headers so callers never infer it from the header set.

Concurrent callers that find the cache empty share one exchange through a
singleflight group, so a burst of requests after expiry costs one grant call.

A 401 on an authenticated request invalidates the token and retries exactly
once with freshly built headers. A second 401 is returned as
ErrAuthenticationRejected.

# Error Handling

All upstream failures are *UpstreamError values. Match them with errors.Is
against the exported sentinels:

	snap, mode, err := client.FetchStates(ctx, nil)
	switch {
	case errors.Is(err, opensky.ErrRateLimited):
	    // 429, not retried
	case errors.Is(err, opensky.ErrTimeout):
	    // bounded request exceeded its deadline
	}

# Resilience

Calls pass through a client-side rate limiter (golang.org/x/time/rate) and a
circuit breaker (sony/gobreaker). Only timeouts, network failures and 5xx
responses count against the breaker; quota answers (429) and auth answers
(401) do not.
*/
package opensky
