// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/skytrail/internal/flights"
	"github.com/tomtom215/skytrail/internal/middleware"
	"github.com/tomtom215/skytrail/internal/opensky"
)

func stateRow(icao string, lat, lon float64) []interface{} {
	return []interface{}{
		icao, "TEST1   ", "Germany", float64(1700000000), float64(1700000001),
		lon, lat, 10972.8, false, 231.5, 92.1, 0.0, nil, 11277.6, "1000", false, float64(0),
	}
}

// fakeUpstream implements flights.StatesFetcher and flights.TrackFetcher.
type fakeUpstream struct {
	statesCalls atomic.Int32
	trackCalls  atomic.Int32

	mu        sync.Mutex
	statesErr error
	trackErr  error
	rows      [][]interface{}
}

func (f *fakeUpstream) FetchStates(_ context.Context, bbox *opensky.BoundingBox) (*opensky.StatesResponse, opensky.AuthMode, error) {
	f.statesCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statesErr != nil {
		return nil, opensky.Authenticated, f.statesErr
	}
	rows := f.rows
	if bbox != nil {
		rows = rows[:1]
	}
	return &opensky.StatesResponse{Time: 1700000000, States: rows}, opensky.Authenticated, nil
}

func (f *fakeUpstream) FetchTrack(_ context.Context, icao24 string, at int64) (*opensky.TrackResponse, opensky.AuthMode, error) {
	f.trackCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trackErr != nil {
		return nil, opensky.Authenticated, f.trackErr
	}
	cs := "DLH9LF  "
	return &opensky.TrackResponse{
		ICAO24:    icao24,
		Callsign:  &cs,
		StartTime: 1700000000,
		EndTime:   1700003600,
		Path: [][]interface{}{
			{float64(100), 10.0, 20.0, 1000.0, 90.0, false},
			{float64(110), 10.1, 20.1, 1050.0, 91.0, false},
		},
	}, opensky.Authenticated, nil
}

func (f *fakeUpstream) setStatesErr(err error) {
	f.mu.Lock()
	f.statesErr = err
	f.mu.Unlock()
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	up      *fakeUpstream
	clock   *clock
	service *flights.Service
	handler *Handler
	server  http.Handler
}

func newTestEnv(t *testing.T, mutate func(*Dependencies)) *testEnv {
	t.Helper()

	up := &fakeUpstream{rows: [][]interface{}{
		stateRow("3c6444", 50.03, 8.55),
		stateRow("4ca7b4", 53.42, -6.27),
	}}
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cache := flights.NewSnapshotCache(nil, flights.CacheConfig{Now: clk.Now})
	svc := flights.NewService(up, cache)
	tracks := flights.NewTrackService(up, time.Minute)
	t.Cleanup(tracks.Close)

	deps := Dependencies{
		Flights:          svc,
		Tracks:           tracks,
		Refresher:        flights.NewRefresher(svc, flights.RefresherConfig{}),
		Monitor:          middleware.NewPerformanceMonitor(100),
		CircuitState:     func() string { return "closed" },
		WebSocketClients: func() int { return 3 },
		AuthConfigured:   true,
	}
	if mutate != nil {
		mutate(&deps)
	}

	h := NewHandler(deps)
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	return &testEnv{
		up:      up,
		clock:   clk,
		service: svc,
		handler: h,
		server:  NewRouter(h, NewChiMiddleware(cfg)).SetupChi(),
	}
}

func (e *testEnv) do(t *testing.T, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}
