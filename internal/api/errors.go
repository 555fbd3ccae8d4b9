// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/skytrail/internal/opensky"
)

// upstreamStatus maps an upstream failure to the HTTP status and error code
// returned to the client.
func upstreamStatus(err error) (int, string) {
	switch {
	case errors.Is(err, opensky.ErrRateLimited):
		return http.StatusTooManyRequests, ErrCodeUpstreamRateLimited
	case errors.Is(err, opensky.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrCodeUpstreamTimeout
	case errors.Is(err, opensky.ErrUpstreamUnavailable), errors.Is(err, opensky.ErrCircuitOpen):
		return http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable
	case errors.Is(err, opensky.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	default:
		return http.StatusBadGateway, ErrCodeExternalServiceFail
	}
}

// writeUpstreamError writes the envelope for an upstream failure. The
// message is the upstream error text, which never contains credentials.
func writeUpstreamError(rw *ResponseWriter, err error, details interface{}) {
	status, code := upstreamStatus(err)
	message := err.Error()
	var ue *opensky.UpstreamError
	if errors.As(err, &ue) {
		message = ue.Error()
		if ue.RetryAfter > 0 {
			rw.w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(ue.RetryAfter.Seconds()))))
		}
	}
	rw.ErrorWithDetails(status, code, message, details)
}

// roundSeconds rounds d to whole seconds.
func roundSeconds(d time.Duration) int64 {
	return int64(math.Round(d.Seconds()))
}
