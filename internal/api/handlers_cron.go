// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/tomtom215/skytrail/internal/logging"
	"github.com/tomtom215/skytrail/internal/opensky"
)

type cronResponse struct {
	Success    bool             `json:"success"`
	Count      int              `json:"count"`
	Source     opensky.AuthMode `json:"source"`
	DurationMs int64            `json:"duration_ms"`
}

// CronRefresh serves GET|POST /api/v1/cron/refresh. With CRON_SECRET set
// the caller must present it as a bearer token.
func (h *Handler) CronRefresh(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.deps.CronSecret != "" && !bearerMatches(r, h.deps.CronSecret) {
		logging.Ctx(r.Context()).Warn().Str("remote_addr", r.RemoteAddr).Msg("cron refresh rejected: bad credentials")
		rw.Unauthorized("Invalid or missing cron secret")
		return
	}
	if h.deps.Refresher == nil {
		rw.ServiceUnavailable("Refresher is not available")
		return
	}

	// A trigger that hangs up must not abort a refresh halfway.
	res := h.deps.Refresher.RunOnce(context.WithoutCancel(r.Context()))
	if !res.Success {
		writeUpstreamError(rw, res.Err, map[string]interface{}{
			"duration_ms": res.Duration.Milliseconds(),
		})
		return
	}

	writeJSON(w, http.StatusOK, cronResponse{
		Success:    true,
		Count:      res.Count,
		Source:     res.Source,
		DurationMs: res.Duration.Milliseconds(),
	})
}

func bearerMatches(r *http.Request, secret string) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
