// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package publish

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/skytrail/internal/flights"
	"github.com/tomtom215/skytrail/internal/logging"
	"github.com/tomtom215/skytrail/internal/metrics"
)

// InstanceHeader names the process that published a message, so
// subscribers can skip their own announcements.
const InstanceHeader = "Skytrail-Instance"

// DefaultPublishTimeout bounds one publish to one broker.
const DefaultPublishTimeout = 10 * time.Second

// Publisher delivers a snapshot to one broker.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, snap *flights.Snapshot) error
	Close() error
}

// Dispatcher forwards the latest snapshot to every publisher.
type Dispatcher struct {
	publishers []Publisher
	timeout    time.Duration

	mu      sync.Mutex
	pending chan *flights.Snapshot
}

// NewDispatcher creates a Dispatcher. timeout <= 0 uses DefaultPublishTimeout.
func NewDispatcher(timeout time.Duration, publishers ...Publisher) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Dispatcher{
		publishers: publishers,
		timeout:    timeout,
		pending:    make(chan *flights.Snapshot, 1),
	}
}

// Enqueue replaces any pending snapshot with snap. It never blocks and
// matches the flights.Service observer signature.
func (d *Dispatcher) Enqueue(snap *flights.Snapshot) {
	if snap == nil || !snap.Global() || len(d.publishers) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	select {
	case <-d.pending:
		logging.Debug().Msg("publish backlog, superseding pending snapshot")
	default:
	}
	d.pending <- snap
}

// Serve publishes queued snapshots until ctx is canceled. It implements
// suture.Service.
func (d *Dispatcher) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-d.pending:
			d.publish(ctx, snap)
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, snap *flights.Snapshot) {
	for _, p := range d.publishers {
		pctx, cancel := context.WithTimeout(ctx, d.timeout)
		start := time.Now()
		err := p.Publish(pctx, snap)
		cancel()
		metrics.RecordPublish(p.Name(), err)
		if err != nil {
			logging.Warn().Err(err).Str("backend", p.Name()).Int("count", snap.Count).Msg("snapshot publish failed")
			continue
		}
		logging.Debug().
			Str("backend", p.Name()).
			Int("count", snap.Count).
			Dur("duration", time.Since(start)).
			Msg("snapshot published")
	}
}

// Close closes every publisher and returns the first error.
func (d *Dispatcher) Close() error {
	var first error
	for _, p := range d.publishers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Len returns the number of configured publishers.
func (d *Dispatcher) Len() int {
	return len(d.publishers)
}

func (d *Dispatcher) String() string {
	return "snapshot-publisher"
}
