// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/skytrail/internal/middleware"
	"github.com/tomtom215/skytrail/internal/opensky"
)

// Healthz is the liveness check. It never touches upstream.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports 200 once the server is accepting traffic and 503 while
// starting or draining.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		WriteError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type snapshotStatus struct {
	Freshness   string           `json:"freshness"`
	AgeSeconds  *int64           `json:"age_seconds,omitempty"`
	Count       int              `json:"count"`
	Time        int64            `json:"time,omitempty"`
	Source      opensky.AuthMode `json:"source"`
	CapturedAt  *time.Time       `json:"captured_at,omitempty"`
	FreshWindow string           `json:"fresh_window"`
	MaxWindow   string           `json:"max_window"`
}

type upstreamInfo struct {
	AuthConfigured bool   `json:"auth_configured"`
	CircuitState   string `json:"circuit_state,omitempty"`
}

type refreshStatus struct {
	Success    bool             `json:"success"`
	Count      int              `json:"count"`
	Source     opensky.AuthMode `json:"source"`
	DurationMs int64            `json:"duration_ms"`
	FinishedAt time.Time        `json:"finished_at"`
	Error      string           `json:"error,omitempty"`
	Interval   string           `json:"interval"`
}

type trackCacheStatus struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

type statusResponse struct {
	Snapshot         snapshotStatus             `json:"snapshot"`
	Upstream         upstreamInfo               `json:"upstream"`
	LastRefresh      *refreshStatus             `json:"last_refresh,omitempty"`
	TrackCache       *trackCacheStatus          `json:"track_cache,omitempty"`
	WebSocketClients int                        `json:"websocket_clients"`
	Endpoints        []middleware.EndpointStats `json:"endpoints,omitempty"`
	UptimeSeconds    int64                      `json:"uptime_seconds"`
}

// Status serves GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	cache := h.deps.Flights.Cache()
	fresh, maxAge := cache.Windows()

	resp := statusResponse{
		Snapshot: snapshotStatus{
			FreshWindow: fresh.String(),
			MaxWindow:   maxAge.String(),
		},
		Upstream:      upstreamInfo{AuthConfigured: h.deps.AuthConfigured},
		UptimeSeconds: roundSeconds(time.Since(h.startTime)),
	}

	snap, ok := cache.Get(r.Context())
	resp.Snapshot.Freshness = cache.FreshnessOf(snap).String()
	if ok {
		age := roundSeconds(cache.Age(snap))
		captured := snap.CapturedAt
		resp.Snapshot.AgeSeconds = &age
		resp.Snapshot.Count = snap.Count
		resp.Snapshot.Time = snap.Time
		resp.Snapshot.Source = snap.Source
		resp.Snapshot.CapturedAt = &captured
	}

	if h.deps.CircuitState != nil {
		resp.Upstream.CircuitState = h.deps.CircuitState()
	}
	if h.deps.Refresher != nil {
		if last, ok := h.deps.Refresher.Last(); ok {
			rs := &refreshStatus{
				Success:    last.Success,
				Count:      last.Count,
				Source:     last.Source,
				DurationMs: last.Duration.Milliseconds(),
				FinishedAt: last.FinishedAt,
				Interval:   h.deps.Refresher.Interval().String(),
			}
			if last.Err != nil {
				rs.Error = last.Err.Error()
			}
			resp.LastRefresh = rs
		}
	}
	if h.deps.Tracks != nil {
		st := h.deps.Tracks.Stats()
		resp.TrackCache = &trackCacheStatus{
			Entries: st.Entries,
			Hits:    st.Hits,
			Misses:  st.Misses,
			HitRate: h.deps.Tracks.HitRate(),
		}
	}
	if h.deps.WebSocketClients != nil {
		resp.WebSocketClients = h.deps.WebSocketClients()
	}
	if h.deps.Monitor != nil {
		resp.Endpoints = h.deps.Monitor.GetStats()
	}

	NewResponseWriter(w, r).Success(resp)
}
