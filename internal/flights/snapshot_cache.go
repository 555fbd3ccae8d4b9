// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package flights

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/tomtom215/skytrail/internal/logging"
)

// Default freshness windows.
const (
	DefaultFreshWindow = 10 * time.Second
	DefaultMaxWindow   = 60 * time.Second
)

// ErrNoSnapshot is returned by a Store that holds no snapshot.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Freshness classifies a snapshot by age.
type Freshness int

const (
	Absent Freshness = iota
	Fresh
	Stale
	Expired
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	case Expired:
		return "expired"
	default:
		return "absent"
	}
}

// Store holds at most one snapshot. Save replaces it wholesale; Load
// returns ErrNoSnapshot when nothing has been saved.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Clear(ctx context.Context) error
}

// MemoryStore is a process-local Store. Readers see the previous or the
// new snapshot, never a partially written one.
type MemoryStore struct {
	current atomic.Pointer[Snapshot]
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) (*Snapshot, error) {
	snap := m.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

func (m *MemoryStore) Save(_ context.Context, snap *Snapshot) error {
	m.current.Store(snap)
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.current.Store(nil)
	return nil
}

// CacheConfig configures a SnapshotCache.
type CacheConfig struct {
	FreshWindow time.Duration
	MaxWindow   time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// SnapshotCache holds the current global snapshot and classifies it by
// the time elapsed since it was stored.
type SnapshotCache struct {
	store       Store
	freshWindow time.Duration
	maxWindow   time.Duration
	now         func() time.Time
}

// NewSnapshotCache wraps store. A nil store is replaced by a MemoryStore.
func NewSnapshotCache(store Store, cfg CacheConfig) *SnapshotCache {
	if store == nil {
		store = NewMemoryStore()
	}
	if cfg.FreshWindow <= 0 {
		cfg.FreshWindow = DefaultFreshWindow
	}
	if cfg.MaxWindow <= cfg.FreshWindow {
		cfg.MaxWindow = max(DefaultMaxWindow, 6*cfg.FreshWindow)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SnapshotCache{
		store:       store,
		freshWindow: cfg.FreshWindow,
		maxWindow:   cfg.MaxWindow,
		now:         cfg.Now,
	}
}

// Set replaces the current snapshot with a copy of snap captured now and
// returns the stored copy.
func (c *SnapshotCache) Set(ctx context.Context, snap *Snapshot) (*Snapshot, error) {
	stored := *snap
	stored.CapturedAt = c.now()
	if err := c.store.Save(ctx, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Get returns the current snapshot. Store failures are logged and reported
// as a miss.
func (c *SnapshotCache) Get(ctx context.Context) (*Snapshot, bool) {
	snap, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSnapshot) {
			logging.Ctx(ctx).Warn().Err(err).Msg("Snapshot store read failed")
		}
		return nil, false
	}
	return snap, true
}

// Age returns how long ago snap was stored.
func (c *SnapshotCache) Age(snap *Snapshot) time.Duration {
	age := c.now().Sub(snap.CapturedAt)
	if age < 0 {
		return 0
	}
	return age
}

// FreshnessOf classifies snap without touching the store. A nil snapshot
// is Absent.
func (c *SnapshotCache) FreshnessOf(snap *Snapshot) Freshness {
	if snap == nil {
		return Absent
	}
	switch age := c.Age(snap); {
	case age < c.freshWindow:
		return Fresh
	case age < c.maxWindow:
		return Stale
	default:
		return Expired
	}
}

// Classify loads the current snapshot and classifies it.
func (c *SnapshotCache) Classify(ctx context.Context) Freshness {
	snap, _ := c.Get(ctx)
	return c.FreshnessOf(snap)
}

// IsFresh reports whether a snapshot exists and is younger than the fresh
// window.
func (c *SnapshotCache) IsFresh(ctx context.Context) bool {
	return c.Classify(ctx) == Fresh
}

// Clear drops the current snapshot.
func (c *SnapshotCache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Windows returns the configured fresh and max windows.
func (c *SnapshotCache) Windows() (fresh, maxAge time.Duration) {
	return c.freshWindow, c.maxWindow
}
