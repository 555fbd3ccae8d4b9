// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

/*
Package middleware provides chi-compatible HTTP middleware for the Skytrail
API.

Key Components:

  - RequestID: UUID request IDs propagated into the logging context
  - Prometheus: request counts and latency labelled by chi route pattern
  - Compression: gzip for clients that accept it, which matters for the
    multi-megabyte global snapshot
  - PerformanceMonitor: in-process latency percentiles surfaced by the
    status endpoint

Middleware Stack:

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(rateLimit)
	    r.Use(middleware.Prometheus)
	    r.Use(monitor.Middleware)
	    r.Use(middleware.Compression)
	    ...
	})

Every wrapper here keeps http.Hijacker and http.Flusher reachable so the
WebSocket upgrade works behind the full stack.
*/
package middleware
