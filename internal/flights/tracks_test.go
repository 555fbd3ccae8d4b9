// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package flights

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/skytrail/internal/cache"
	"github.com/tomtom215/skytrail/internal/opensky"
)

type fakeTracks struct {
	calls atomic.Int32
	err   error
}

func (f *fakeTracks) FetchTrack(_ context.Context, icao24 string, at int64) (*opensky.TrackResponse, opensky.AuthMode, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, opensky.Anonymous, f.err
	}
	return &opensky.TrackResponse{
		ICAO24:    icao24,
		StartTime: float64(at),
		EndTime:   float64(at + 10),
		Path: [][]interface{}{
			{float64(at), 10.0, 20.0, 1000.0, 90.0, false},
		},
	}, opensky.Anonymous, nil
}

func TestTrackServiceCachesPerAircraftAndTime(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	up := &fakeTracks{}
	clock := newFakeClock()
	svc := NewTrackService(up, 30*time.Second, cache.WithClock(clock.Now))
	svc.now = clock.Now
	defer svc.Close()

	at := clock.Now().Unix() - 60
	first, err := svc.Track(ctx, "ABC123", at)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if first.ICAO24 != "abc123" {
		t.Errorf("expected lowercased icao24, got %q", first.ICAO24)
	}
	if _, err := svc.Track(ctx, "abc123", at); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if got := up.calls.Load(); got != 1 {
		t.Errorf("expected 1 upstream call for a repeated lookup, got %d", got)
	}

	if _, err := svc.Track(ctx, "abc123", at+30); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if got := up.calls.Load(); got != 2 {
		t.Errorf("expected a different time to miss the cache, got %d calls", got)
	}

	clock.Advance(31 * time.Second)
	if _, err := svc.Track(ctx, "abc123", at); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if got := up.calls.Load(); got != 3 {
		t.Errorf("expected an expired entry to refetch, got %d calls", got)
	}
}

func TestTrackServiceNotFound(t *testing.T) {
	t.Parallel()
	up := &fakeTracks{err: &opensky.UpstreamError{Kind: opensky.KindNotFound, Endpoint: "tracks", Status: 404}}
	svc := NewTrackService(up, 0)
	defer svc.Close()

	_, err := svc.Track(context.Background(), "abc123", 0)
	if !errors.Is(err, opensky.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Failures are not cached.
	_, _ = svc.Track(context.Background(), "abc123", 0)
	if got := up.calls.Load(); got != 2 {
		t.Errorf("expected 2 upstream calls, got %d", got)
	}
}

func TestTrackServiceKeepsCompletedTracksLonger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	up := &fakeTracks{}
	clock := newFakeClock()
	svc := NewTrackService(up, 30*time.Second, cache.WithClock(clock.Now))
	svc.now = clock.Now
	defer svc.Close()

	// Ended two hours before the clock.
	at := clock.Now().Add(-2 * time.Hour).Unix()
	if _, err := svc.Track(ctx, "abc123", at); err != nil {
		t.Fatalf("Track: %v", err)
	}

	clock.Advance(5 * time.Minute)
	if _, err := svc.Track(ctx, "abc123", at); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if got := up.calls.Load(); got != 1 {
		t.Errorf("expected completed track served from cache after 5m, got %d calls", got)
	}

	clock.Advance(completedTrackTTL)
	if _, err := svc.Track(ctx, "abc123", at); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if got := up.calls.Load(); got != 2 {
		t.Errorf("expected refetch after the completed track TTL, got %d calls", got)
	}
}

func TestTrackServiceHitRate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewTrackService(&fakeTracks{}, time.Minute)
	defer svc.Close()

	if rate := svc.HitRate(); rate != 0 {
		t.Errorf("expected 0 hit rate before lookups, got %v", rate)
	}
	for i := 0; i < 4; i++ {
		if _, err := svc.Track(ctx, "abc123", 0); err != nil {
			t.Fatalf("Track: %v", err)
		}
	}
	if rate := svc.HitRate(); rate != 75 {
		t.Errorf("expected 75 hit rate, got %v", rate)
	}
}
