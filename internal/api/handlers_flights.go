// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/skytrail/internal/flights"
	"github.com/tomtom215/skytrail/internal/logging"
	"github.com/tomtom215/skytrail/internal/opensky"
	"github.com/tomtom215/skytrail/internal/validation"
)

const (
	cacheControlShared  = "public, s-maxage=5, stale-while-revalidate=10"
	cacheControlNoStore = "no-store"
)

// flightsResponse is the downstream snapshot contract.
type flightsResponse struct {
	Flights []flights.FlightRecord `json:"flights"`
	Time    int64                  `json:"time"`
	Count   int                    `json:"count"`
	Source  opensky.AuthMode       `json:"source"`
	Cached  bool                   `json:"cached"`
	// CacheAge is whole seconds, present only for cached results.
	CacheAge *int64 `json:"cacheAge,omitempty"`
	Stale    bool   `json:"stale,omitempty"`
}

// Flights serves GET /api/v1/flights.
func (h *Handler) Flights(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q := r.URL.Query()

	bbox, err := opensky.ParseBoundingBox(q)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if bbox != nil {
		if verr := validation.ValidateStruct(bbox); verr != nil {
			apiErr := verr.ToAPIError()
			rw.ValidationError(apiErr.Message, apiErr.Details)
			return
		}
	}

	refresh := false
	if raw := q.Get("refresh"); raw != "" {
		refresh, err = strconv.ParseBool(raw)
		if err != nil {
			rw.BadRequest("refresh must be a boolean")
			return
		}
	}

	res, err := h.deps.Flights.Resolve(r.Context(), flights.Request{BoundingBox: bbox, Refresh: refresh})
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Bool("bbox", bbox != nil).Msg("flights request failed")
		w.Header().Set("Cache-Control", cacheControlNoStore)
		writeUpstreamError(rw, err, nil)
		return
	}

	snap := res.Snapshot
	body := flightsResponse{
		Flights: snap.Flights,
		Time:    snap.Time,
		Count:   snap.Count,
		Source:  snap.Source,
		Cached:  res.Cached,
		Stale:   res.Stale,
	}
	if body.Flights == nil {
		body.Flights = []flights.FlightRecord{}
	}
	if res.Cached {
		age := roundSeconds(res.CacheAge)
		body.CacheAge = &age
	}

	if bbox != nil || refresh {
		w.Header().Set("Cache-Control", cacheControlNoStore)
	} else {
		w.Header().Set("Cache-Control", cacheControlShared)
	}
	writeJSON(w, http.StatusOK, body)
}
