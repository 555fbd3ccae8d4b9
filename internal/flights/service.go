// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package flights

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/skytrail/internal/logging"
	"github.com/tomtom215/skytrail/internal/metrics"
	"github.com/tomtom215/skytrail/internal/opensky"
)

// StatesFetcher fetches raw state vectors. *opensky.Client implements it.
type StatesFetcher interface {
	FetchStates(ctx context.Context, bbox *opensky.BoundingBox) (*opensky.StatesResponse, opensky.AuthMode, error)
}

// Request describes one client poll.
type Request struct {
	// BoundingBox scopes the fetch and bypasses the cache when set.
	BoundingBox *opensky.BoundingBox
	// Refresh forces an upstream fetch even when the cache is fresh.
	Refresh bool
}

// Result is a snapshot plus how it was obtained.
type Result struct {
	Snapshot *Snapshot
	// Cached is true when the snapshot came from the cache.
	Cached bool
	// CacheAge is the snapshot age when Cached is true.
	CacheAge time.Duration
	// Stale is true when a fetch failed and an older snapshot was served.
	Stale bool
	// FetchErr is the failure that caused a stale fallback.
	FetchErr error
}

// Service ingests upstream state vectors into snapshots and resolves
// client polls against the snapshot cache.
type Service struct {
	upstream StatesFetcher
	cache    *SnapshotCache
	now      func() time.Time

	// global collapses concurrent cache-miss fetches into one upstream call.
	global singleflight.Group

	mu        sync.RWMutex
	observers []func(*Snapshot)
}

// NewService creates a Service. The cache clock is reused for fetched
// snapshots that are never cached.
func NewService(upstream StatesFetcher, cache *SnapshotCache) *Service {
	return &Service{
		upstream: upstream,
		cache:    cache,
		now:      cache.now,
	}
}

// Cache returns the snapshot cache.
func (s *Service) Cache() *SnapshotCache {
	return s.cache
}

// OnSnapshot registers fn to be called with every newly cached global
// snapshot. fn runs on the ingesting goroutine and must not block.
func (s *Service) OnSnapshot(fn func(*Snapshot)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Ingest fetches, normalizes and, for global fetches, caches a snapshot.
// Upstream failures are returned unchanged and leave the cache untouched.
func (s *Service) Ingest(ctx context.Context, bbox *opensky.BoundingBox) (*Snapshot, error) {
	resp, mode, err := s.upstream.FetchStates(ctx, bbox)
	if err != nil {
		return nil, fmt.Errorf("fetch states: %w", err)
	}

	flights := NormalizeStates(resp.States)
	snap := &Snapshot{
		Flights:     flights,
		Time:        resp.Time,
		Count:       len(flights),
		Source:      mode,
		CapturedAt:  s.now(),
		BoundingBox: bbox,
	}

	logger := logging.Ctx(ctx)
	if bbox != nil {
		logger.Debug().
			Int("flights", snap.Count).
			Int("dropped", len(resp.States)-snap.Count).
			Str("source", mode.String()).
			Msg("Fetched bounded snapshot")
		return snap, nil
	}

	stored, err := s.cache.Set(ctx, snap)
	if err != nil {
		// The fetch succeeded; serve it even though it could not be cached.
		logger.Warn().Err(err).Msg("Failed to store global snapshot")
		return snap, nil
	}

	metrics.RecordSnapshot(stored.Count, stored.CapturedAt)
	logger.Info().
		Int("flights", stored.Count).
		Int("dropped", len(resp.States)-stored.Count).
		Int64("upstream_time", stored.Time).
		Str("source", mode.String()).
		Msg("Cached global snapshot")

	s.notify(stored)
	return stored, nil
}

// Resolve answers a client poll:
//
//  1. a bounding box always fetches and is never cached
//  2. Refresh always fetches globally
//  3. a fresh cached snapshot is served as is
//  4. otherwise a global fetch runs
//
// When a global fetch fails the previous snapshot is served, whatever its
// age, with Stale set. Only a failure with no snapshot at all is returned
// as an error.
func (s *Service) Resolve(ctx context.Context, req Request) (*Result, error) {
	if req.BoundingBox != nil {
		snap, err := s.Ingest(ctx, req.BoundingBox)
		if err != nil {
			return nil, err
		}
		return &Result{Snapshot: snap}, nil
	}

	prior, _ := s.cache.Get(ctx)

	if !req.Refresh {
		freshness := s.cache.FreshnessOf(prior)
		metrics.RecordCacheResult("snapshot", freshness.String())
		if freshness == Fresh {
			return &Result{Snapshot: prior, Cached: true, CacheAge: s.cache.Age(prior)}, nil
		}
	}

	var (
		snap *Snapshot
		err  error
	)
	if req.Refresh {
		snap, err = s.Ingest(ctx, nil)
	} else {
		snap, err = s.ingestShared(ctx)
	}
	if err == nil {
		return &Result{Snapshot: snap}, nil
	}

	if prior == nil {
		return nil, err
	}
	logging.Ctx(ctx).Warn().Err(err).
		Dur("age", s.cache.Age(prior)).
		Msg("Upstream fetch failed, serving previous snapshot")
	return &Result{
		Snapshot: prior,
		Cached:   true,
		CacheAge: s.cache.Age(prior),
		Stale:    true,
		FetchErr: err,
	}, nil
}

// ingestShared runs a global ingest, joining one already in flight. The
// shared fetch is detached from any single caller's cancellation.
func (s *Service) ingestShared(ctx context.Context) (*Snapshot, error) {
	ch := s.global.DoChan("global", func() (interface{}, error) {
		return s.Ingest(context.WithoutCancel(ctx), nil)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch states: %w", ctx.Err())
	}
}

func (s *Service) notify(snap *Snapshot) {
	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()

	for _, fn := range observers {
		fn(snap)
	}
}
