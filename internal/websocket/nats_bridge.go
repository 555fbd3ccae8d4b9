// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package websocket

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/tomtom215/skytrail/internal/flights"
	"github.com/tomtom215/skytrail/internal/logging"
	"github.com/tomtom215/skytrail/internal/publish"
)

// SnapshotLoader returns the current shared snapshot.
type SnapshotLoader func(ctx context.Context) (*flights.Snapshot, bool)

// NATSBridge relays snapshot announcements published by other instances to
// the local hub. The announced snapshot is read back from the shared store
// so viewport subscribers get flights, not just the summary.
type NATSBridge struct {
	hub      *Hub
	nc       *nats.Conn
	subject  string
	instance string
	load     SnapshotLoader
}

// NewNATSBridge creates a bridge. Messages carrying this instance's id in
// publish.InstanceHeader are ignored because the local observer already
// delivered them.
func NewNATSBridge(hub *Hub, nc *nats.Conn, subject, instance string, load SnapshotLoader) *NATSBridge {
	return &NATSBridge{hub: hub, nc: nc, subject: subject, instance: instance, load: load}
}

// Serve subscribes until ctx is canceled. It implements suture.Service.
func (b *NATSBridge) Serve(ctx context.Context) error {
	ch := make(chan *nats.Msg, 16)
	sub, err := b.nc.ChanSubscribe(b.subject, ch)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	logging.Info().Str("subject", b.subject).Msg("NATS to WebSocket bridge started")
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("NATS to WebSocket bridge stopped")
			return ctx.Err()
		case msg := <-ch:
			b.handle(ctx, msg)
		}
	}
}

func (b *NATSBridge) handle(ctx context.Context, msg *nats.Msg) {
	if msg.Header.Get(publish.InstanceHeader) == b.instance {
		return
	}
	var summary flights.Summary
	if err := json.Unmarshal(msg.Data, &summary); err != nil {
		logging.Warn().Err(err).Msg("failed to unmarshal snapshot announcement")
		return
	}
	if snap, ok := b.load(ctx); ok && snap.Time >= summary.Time {
		b.hub.BroadcastSnapshot(snap)
		return
	}
	// Store not caught up yet; clients can still poll.
	b.hub.BroadcastJSON(MessageTypeSnapshot, summary)
}

func (b *NATSBridge) String() string {
	return "nats-websocket-bridge"
}
