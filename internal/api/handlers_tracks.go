// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/tomtom215/skytrail/internal/logging"
	"github.com/tomtom215/skytrail/internal/opensky"
	"github.com/tomtom215/skytrail/internal/validation"
)

type trackQuery struct {
	ICAO24 string `json:"icao24" validate:"required,icao24"`
	// Time is unix seconds; 0 asks for the live track.
	Time int64 `json:"time" validate:"min=0"`
}

// Tracks serves GET /api/v1/tracks?icao24=<hex>&time=<unix|0>.
func (h *Handler) Tracks(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.deps.Tracks == nil {
		rw.ServiceUnavailable("Track lookups are not available")
		return
	}

	q := r.URL.Query()
	req := trackQuery{ICAO24: strings.TrimSpace(q.Get("icao24"))}
	if raw := q.Get("time"); raw != "" {
		t, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			rw.BadRequest("time must be a unix timestamp in seconds")
			return
		}
		req.Time = t
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	track, err := h.deps.Tracks.Track(r.Context(), req.ICAO24, req.Time)
	if err != nil {
		if errors.Is(err, opensky.ErrNotFound) {
			rw.NotFound("No track found for " + strings.ToLower(req.ICAO24))
			return
		}
		logging.Ctx(r.Context()).Warn().Err(err).Str("icao24", req.ICAO24).Msg("track request failed")
		writeUpstreamError(rw, err, nil)
		return
	}

	w.Header().Set("Cache-Control", cacheControlShared)
	writeJSON(w, http.StatusOK, track)
}
