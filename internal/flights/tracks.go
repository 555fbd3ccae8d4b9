// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package flights

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/skytrail/internal/cache"
	"github.com/tomtom215/skytrail/internal/metrics"
	"github.com/tomtom215/skytrail/internal/opensky"
)

// DefaultTrackCacheTTL bounds how long a fetched track is reused.
const DefaultTrackCacheTTL = 30 * time.Second

const maxCachedTracks = 1000

// A track whose last point is older than completedTrackAge belongs to a
// finished flight and no longer changes, so it is kept for
// completedTrackTTL instead of the live TTL.
const (
	completedTrackAge = time.Hour
	completedTrackTTL = 10 * time.Minute
)

// TrackFetcher fetches one raw aircraft track. *opensky.Client implements it.
type TrackFetcher interface {
	FetchTrack(ctx context.Context, icao24 string, at int64) (*opensky.TrackResponse, opensky.AuthMode, error)
}

// TrackService fetches aircraft tracks on demand. Tracks are never part of
// a snapshot; they are cached per aircraft and time for a short TTL.
type TrackService struct {
	upstream TrackFetcher
	cache    *cache.Cache[*Track]
	ttl      time.Duration
	now      func() time.Time
}

// NewTrackService creates a TrackService. ttl <= 0 uses DefaultTrackCacheTTL.
func NewTrackService(upstream TrackFetcher, ttl time.Duration, opts ...cache.Option) *TrackService {
	if ttl <= 0 {
		ttl = DefaultTrackCacheTTL
	}
	opts = append([]cache.Option{
		cache.WithMaxEntries(maxCachedTracks),
		cache.WithCleanupInterval(ttl),
	}, opts...)
	return &TrackService{
		upstream: upstream,
		cache:    cache.New[*Track](ttl, opts...),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Track returns the trajectory of icao24 around unix time at, where 0
// means the live track.
func (s *TrackService) Track(ctx context.Context, icao24 string, at int64) (*Track, error) {
	icao24 = strings.ToLower(icao24)
	key := icao24 + ":" + strconv.FormatInt(at, 10)
	if t, ok := s.cache.Get(key); ok {
		metrics.RecordCacheResult("track", "hit")
		return t, nil
	}
	metrics.RecordCacheResult("track", "miss")

	raw, _, err := s.upstream.FetchTrack(ctx, icao24, at)
	if err != nil {
		return nil, fmt.Errorf("fetch track %s: %w", icao24, err)
	}

	t := NormalizeTrack(raw)
	s.cache.SetWithTTL(key, t, s.ttlFor(t))
	return t, nil
}

func (s *TrackService) ttlFor(t *Track) time.Duration {
	if t.EndTime > 0 && s.now().Sub(time.Unix(t.EndTime, 0)) > completedTrackAge {
		return max(s.ttl, completedTrackTTL)
	}
	return s.ttl
}

// Stats returns track cache statistics.
func (s *TrackService) Stats() cache.Stats {
	return s.cache.GetStats()
}

// HitRate returns the track cache hit percentage.
func (s *TrackService) HitRate() float64 {
	return s.cache.HitRate()
}

// Close stops the cache janitor.
func (s *TrackService) Close() {
	s.cache.Close()
}
