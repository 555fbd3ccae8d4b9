// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package flights

import (
	"time"

	"github.com/tomtom215/skytrail/internal/opensky"
)

// PositionSource identifies how an aircraft position was derived.
type PositionSource int

const (
	SourceADSB PositionSource = iota
	SourceASTERIX
	SourceMLAT
	SourceFLARM
)

func (p PositionSource) String() string {
	switch p {
	case SourceADSB:
		return "ADS-B"
	case SourceASTERIX:
		return "ASTERIX"
	case SourceMLAT:
		return "MLAT"
	case SourceFLARM:
		return "FLARM"
	default:
		return "unknown"
	}
}

// FlightRecord is one normalized aircraft state. Latitude and Longitude are
// always present; every other nullable upstream column stays a nil pointer
// when the upstream value was null.
type FlightRecord struct {
	ICAO24         string          `json:"icao24"`
	Callsign       *string         `json:"callsign"`
	OriginCountry  string          `json:"origin_country"`
	TimePosition   *int64          `json:"time_position"`
	LastContact    *int64          `json:"last_contact"`
	Longitude      float64         `json:"longitude"`
	Latitude       float64         `json:"latitude"`
	BaroAltitude   *float64        `json:"baro_altitude"`
	OnGround       bool            `json:"on_ground"`
	Velocity       *float64        `json:"velocity"`
	TrueTrack      *float64        `json:"true_track"`
	VerticalRate   *float64        `json:"vertical_rate"`
	Sensors        []int           `json:"sensors"`
	GeoAltitude    *float64        `json:"geo_altitude"`
	Squawk         *string         `json:"squawk"`
	SPI            bool            `json:"spi"`
	PositionSource *PositionSource `json:"position_source"`
}

// Snapshot is the normalized result of one states fetch.
type Snapshot struct {
	Flights []FlightRecord `json:"flights"`
	// Time is the upstream observation time in unix seconds.
	Time   int64            `json:"time"`
	Count  int              `json:"count"`
	Source opensky.AuthMode `json:"source"`
	// CapturedAt is when the snapshot entered the cache, or when it was
	// fetched for snapshots that are never cached.
	CapturedAt time.Time `json:"captured_at"`
	// BoundingBox is nil for global snapshots.
	BoundingBox *opensky.BoundingBox `json:"bbox,omitempty"`
}

// Global reports whether the snapshot covers the whole map.
func (s *Snapshot) Global() bool {
	return s.BoundingBox == nil
}

// Summary describes a snapshot without its flights.
type Summary struct {
	Time       int64            `json:"time"`
	Count      int              `json:"count"`
	Source     opensky.AuthMode `json:"source"`
	CapturedAt time.Time        `json:"captured_at"`
}

// Summary returns the snapshot header.
func (s *Snapshot) Summary() Summary {
	return Summary{Time: s.Time, Count: s.Count, Source: s.Source, CapturedAt: s.CapturedAt}
}

// Within returns the flights positioned inside b.
func (s *Snapshot) Within(b *opensky.BoundingBox) []FlightRecord {
	out := make([]FlightRecord, 0)
	for i := range s.Flights {
		if b.Contains(s.Flights[i].Latitude, s.Flights[i].Longitude) {
			out = append(out, s.Flights[i])
		}
	}
	return out
}

// Waypoint is one point on an aircraft trajectory.
type Waypoint struct {
	Time         int64    `json:"time"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	BaroAltitude *float64 `json:"baro_altitude"`
	TrueTrack    *float64 `json:"true_track"`
	OnGround     bool     `json:"on_ground"`
}

// Track is the trajectory of one aircraft.
type Track struct {
	ICAO24    string     `json:"icao24"`
	Callsign  *string    `json:"callsign"`
	StartTime int64      `json:"startTime"`
	EndTime   int64      `json:"endTime"`
	Path      []Waypoint `json:"path"`
}
