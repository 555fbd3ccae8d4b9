// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package flights

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/skytrail/internal/opensky"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// stateRow builds a 17-column row with the given coordinates.
func stateRow(icao string, lat, lon interface{}) []interface{} {
	return []interface{}{
		icao, "TEST1   ", "Germany", float64(1700000000), float64(1700000001),
		lon, lat, 10972.8, false, 231.5, 92.1, 0.0, nil, 11277.6, "1000", false, float64(0),
	}
}

// fakeStates is a scripted StatesFetcher.
type fakeStates struct {
	calls atomic.Int32
	mode  opensky.AuthMode

	mu    sync.Mutex
	err   error
	rows  [][]interface{}
	gate  chan struct{}
	bboxs []*opensky.BoundingBox
}

func newFakeStates(rows ...[]interface{}) *fakeStates {
	return &fakeStates{rows: rows, mode: opensky.Authenticated}
}

func (f *fakeStates) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeStates) FetchStates(ctx context.Context, bbox *opensky.BoundingBox) (*opensky.StatesResponse, opensky.AuthMode, error) {
	f.calls.Add(1)
	f.mu.Lock()
	gate, err, rows := f.gate, f.err, f.rows
	f.bboxs = append(f.bboxs, bbox)
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, f.mode, ctx.Err()
		}
	}
	if err != nil {
		return nil, f.mode, err
	}
	return &opensky.StatesResponse{Time: 1700000000, States: rows}, f.mode, nil
}

func upstreamErr(kind opensky.ErrorKind) error {
	return &opensky.UpstreamError{Kind: kind, Endpoint: "states", Status: 503}
}
