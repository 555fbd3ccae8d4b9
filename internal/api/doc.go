// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

/*
Package api serves the flight map's HTTP interface.

Endpoints:

	GET      /api/v1/flights        global snapshot, or a live bbox query
	GET      /api/v1/tracks         one aircraft's track
	GET|POST /api/v1/cron/refresh   scheduled refresh trigger (CRON_SECRET)
	GET      /api/v1/status         cache, upstream and refresh status
	GET      /api/v1/ws             WebSocket snapshot push
	GET      /healthz, /readyz      liveness and readiness
	GET      /metrics               Prometheus

Flights polling policy, in order: a complete lamin/lomin/lamax/lomax box
always fetches live and is never cached; refresh=true fetches and caches;
a fresh snapshot is served from cache; anything else fetches and caches.
When a global fetch fails but an older snapshot exists, that snapshot is
served with stale=true.

Upstream failures map to statuses: rate limited 429, timeout 504,
unavailable or circuit open 503, everything else 502.
*/
package api
