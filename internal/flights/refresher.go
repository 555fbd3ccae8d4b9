// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package flights

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/skytrail/internal/logging"
	"github.com/tomtom215/skytrail/internal/metrics"
	"github.com/tomtom215/skytrail/internal/opensky"
)

// DefaultRefreshTimeout bounds one refresh run.
const DefaultRefreshTimeout = 25 * time.Second

// Ingester performs one ingest. *Service implements it.
type Ingester interface {
	Ingest(ctx context.Context, bbox *opensky.BoundingBox) (*Snapshot, error)
}

// RefreshResult summarizes one refresh run.
type RefreshResult struct {
	Success    bool             `json:"success"`
	Count      int              `json:"count"`
	Source     opensky.AuthMode `json:"source"`
	Duration   time.Duration    `json:"-"`
	FinishedAt time.Time        `json:"finished_at"`
	Err        error            `json:"-"`
}

// RefresherConfig configures a Refresher.
type RefresherConfig struct {
	// Interval between ticker-driven runs. Zero disables the ticker.
	Interval time.Duration
	// Timeout bounds one run. Defaults to DefaultRefreshTimeout.
	Timeout time.Duration
}

// Refresher keeps the snapshot cache warm by ingesting globally, either on
// a ticker or when triggered. Runs never overlap and a failed run leaves
// the cache untouched.
type Refresher struct {
	ingest   Ingester
	interval time.Duration
	timeout  time.Duration

	runMu sync.Mutex

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	lastMu  sync.RWMutex
	last    RefreshResult
	hasLast bool
}

// NewRefresher creates a Refresher.
func NewRefresher(ingest Ingester, cfg RefresherConfig) *Refresher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRefreshTimeout
	}
	return &Refresher{
		ingest:   ingest,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
	}
}

// RunOnce performs one bounded global ingest. Failures are logged and
// reported in the result, never returned or panicked.
func (r *Refresher) RunOnce(ctx context.Context) RefreshResult {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	snap, err := r.ingest.Ingest(ctx, nil)
	duration := time.Since(start)

	result := RefreshResult{
		Success:    err == nil,
		Duration:   duration,
		FinishedAt: time.Now(),
		Err:        err,
	}
	logger := logging.Ctx(ctx)
	if err != nil {
		metrics.RecordRefresh(duration, err, refreshErrorType(err))
		logger.Error().Err(err).Dur("duration", duration).Msg("Snapshot refresh failed")
	} else {
		result.Count = snap.Count
		result.Source = snap.Source
		metrics.RecordRefresh(duration, nil, "")
		logger.Info().
			Int("flights", snap.Count).
			Str("source", snap.Source.String()).
			Dur("duration", duration).
			Msg("Snapshot refreshed")
	}

	r.lastMu.Lock()
	r.last = result
	r.hasLast = true
	r.lastMu.Unlock()

	return result
}

// Last returns the result of the most recent run.
func (r *Refresher) Last() (RefreshResult, bool) {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	return r.last, r.hasLast
}

// Interval returns the ticker period, zero when disabled.
func (r *Refresher) Interval() time.Duration {
	return r.interval
}

// Start runs an initial refresh and then one per interval until Stop or
// ctx cancellation. With a zero interval Start only marks the refresher
// running.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("refresher is already running")
	}
	r.running = true
	r.stopChan = make(chan struct{})
	r.mu.Unlock()

	if r.interval <= 0 {
		logging.Info().Msg("Scheduled refresh disabled (REFRESH_INTERVAL=0), cron trigger only")
		return nil
	}

	logging.Info().Dur("interval", r.interval).Msg("Starting snapshot refresher")
	r.wg.Add(1)
	go r.loop(ctx, r.stopChan)
	return nil
}

// Stop halts the ticker and waits for an in-flight run to finish.
func (r *Refresher) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return fmt.Errorf("refresher is not running")
	}
	r.running = false
	close(r.stopChan)
	r.mu.Unlock()

	r.wg.Wait()
	logging.Info().Msg("Snapshot refresher stopped")
	return nil
}

func (r *Refresher) loop(ctx context.Context, stop <-chan struct{}) {
	defer r.wg.Done()

	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

func refreshErrorType(err error) string {
	if kind, ok := opensky.KindOf(err); ok {
		return kind.String()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "unknown"
}
