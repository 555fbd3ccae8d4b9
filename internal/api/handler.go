// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package api

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tomtom215/skytrail/internal/flights"
	"github.com/tomtom215/skytrail/internal/middleware"
)

// Dependencies are the services the handlers use. Flights is required;
// the rest may be nil and disable their endpoints or status fields.
type Dependencies struct {
	Flights   *flights.Service
	Tracks    *flights.TrackService
	Refresher *flights.Refresher
	WebSocket http.Handler
	Monitor   *middleware.PerformanceMonitor

	// CircuitState reports the upstream breaker state.
	CircuitState func() string
	// WebSocketClients reports connected push clients.
	WebSocketClients func() int

	CronSecret     string
	AuthConfigured bool
}

// Handler holds the API's HTTP handlers.
type Handler struct {
	deps      Dependencies
	ready     atomic.Bool
	startTime time.Time
}

func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps, startTime: time.Now()}
}

// SetReady flips the /readyz answer. The server marks itself ready once it
// is listening and not ready while draining.
func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}
