// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package opensky

import (
	"fmt"
	"net/url"
	"strconv"
)

// BoundingBox scopes a states query to a lat/lon rectangle.
type BoundingBox struct {
	LaMin float64 `json:"lamin" validate:"latitude,ltefield=LaMax"`
	LoMin float64 `json:"lomin" validate:"longitude,ltefield=LoMax"`
	LaMax float64 `json:"lamax" validate:"latitude"`
	LoMax float64 `json:"lomax" validate:"longitude"`
}

var bboxParams = [4]string{"lamin", "lomin", "lamax", "lomax"}

// ParseBoundingBox reads lamin, lomin, lamax and lomax from q. A box only
// takes effect when all four are present: any missing parameter yields
// (nil, nil). A present but non-numeric value is an error.
func ParseBoundingBox(q url.Values) (*BoundingBox, error) {
	var vals [4]float64
	for i, name := range bboxParams {
		raw := q.Get(name)
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number: %w", name, err)
		}
		vals[i] = v
	}
	return &BoundingBox{LaMin: vals[0], LoMin: vals[1], LaMax: vals[2], LoMax: vals[3]}, nil
}

// Query encodes b as upstream query parameters.
func (b *BoundingBox) Query() url.Values {
	q := url.Values{}
	for i, v := range [4]float64{b.LaMin, b.LoMin, b.LaMax, b.LoMax} {
		q.Set(bboxParams[i], strconv.FormatFloat(v, 'f', -1, 64))
	}
	return q
}

// Contains reports whether the point lies inside b, edges included.
func (b *BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.LaMin && lat <= b.LaMax && lon >= b.LoMin && lon <= b.LoMax
}
