// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package flights

import (
	"math"
	"strings"

	"github.com/tomtom215/skytrail/internal/opensky"
)

// State vector column indices.
const (
	colICAO24 = iota
	colCallsign
	colOriginCountry
	colTimePosition
	colLastContact
	colLongitude
	colLatitude
	colBaroAltitude
	colOnGround
	colVelocity
	colTrueTrack
	colVerticalRate
	colSensors
	colGeoAltitude
	colSquawk
	colSPI
	colPositionSource
)

// Track path column indices.
const (
	wpTime = iota
	wpLatitude
	wpLongitude
	wpBaroAltitude
	wpTrueTrack
	wpOnGround
)

// NormalizeStates maps raw state rows to records. Rows without a usable
// latitude and longitude are dropped. Short rows are read as if the missing
// trailing columns were null.
func NormalizeStates(rows [][]interface{}) []FlightRecord {
	out := make([]FlightRecord, 0, len(rows))
	for _, row := range rows {
		lat := floatAt(row, colLatitude)
		lon := floatAt(row, colLongitude)
		if lat == nil || lon == nil {
			continue
		}

		rec := FlightRecord{
			ICAO24:        strings.ToLower(stringValue(row, colICAO24)),
			Callsign:      trimmedString(row, colCallsign),
			OriginCountry: stringValue(row, colOriginCountry),
			TimePosition:  intAt(row, colTimePosition),
			LastContact:   intAt(row, colLastContact),
			Longitude:     *lon,
			Latitude:      *lat,
			BaroAltitude:  floatAt(row, colBaroAltitude),
			OnGround:      boolValue(row, colOnGround),
			Velocity:      floatAt(row, colVelocity),
			TrueTrack:     floatAt(row, colTrueTrack),
			VerticalRate:  floatAt(row, colVerticalRate),
			Sensors:       intsAt(row, colSensors),
			GeoAltitude:   floatAt(row, colGeoAltitude),
			Squawk:        trimmedString(row, colSquawk),
			SPI:           boolValue(row, colSPI),
		}
		if src := intAt(row, colPositionSource); src != nil {
			ps := PositionSource(*src)
			rec.PositionSource = &ps
		}
		out = append(out, rec)
	}
	return out
}

// NormalizeTrack converts a raw track, dropping waypoints without
// coordinates. Upstream ordering is preserved.
func NormalizeTrack(raw *opensky.TrackResponse) *Track {
	t := &Track{
		ICAO24:    strings.ToLower(raw.ICAO24),
		StartTime: int64(raw.StartTime),
		EndTime:   int64(raw.EndTime),
		Path:      make([]Waypoint, 0, len(raw.Path)),
	}
	if raw.Callsign != nil {
		if cs := strings.TrimSpace(*raw.Callsign); cs != "" {
			t.Callsign = &cs
		}
	}

	for _, row := range raw.Path {
		lat := floatAt(row, wpLatitude)
		lon := floatAt(row, wpLongitude)
		if lat == nil || lon == nil {
			continue
		}
		wp := Waypoint{
			Latitude:     *lat,
			Longitude:    *lon,
			BaroAltitude: floatAt(row, wpBaroAltitude),
			TrueTrack:    floatAt(row, wpTrueTrack),
			OnGround:     boolValue(row, wpOnGround),
		}
		if ts := intAt(row, wpTime); ts != nil {
			wp.Time = *ts
		}
		t.Path = append(t.Path, wp)
	}
	return t
}

func column(row []interface{}, i int) interface{} {
	if i >= len(row) {
		return nil
	}
	return row[i]
}

func floatAt(row []interface{}, i int) *float64 {
	var f float64
	switch v := column(row, i).(type) {
	case float64:
		f = v
	case int64:
		f = float64(v)
	case int:
		f = float64(v)
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func intAt(row []interface{}, i int) *int64 {
	f := floatAt(row, i)
	if f == nil {
		return nil
	}
	n := int64(*f)
	return &n
}

func stringValue(row []interface{}, i int) string {
	s, _ := column(row, i).(string)
	return s
}

// trimmedString returns nil for null or blank values.
func trimmedString(row []interface{}, i int) *string {
	s, ok := column(row, i).(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func boolValue(row []interface{}, i int) bool {
	b, _ := column(row, i).(bool)
	return b
}

func intsAt(row []interface{}, i int) []int {
	raw, ok := column(row, i).([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}
