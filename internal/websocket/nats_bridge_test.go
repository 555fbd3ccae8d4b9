// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/tomtom215/skytrail/internal/flights"
	"github.com/tomtom215/skytrail/internal/publish"
)

func runNATS(t *testing.T) *nats.Conn {
	t.Helper()

	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	if err != nil {
		t.Fatalf("create nats server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("nats server not ready")
	}
	t.Cleanup(ns.Shutdown)

	nc, err := nats.Connect(ns.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(nc.Close)
	return nc
}

func announce(t *testing.T, nc *nats.Conn, instance string, snap *flights.Snapshot) {
	t.Helper()
	data, err := json.Marshal(snap.Summary())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg := nats.NewMsg("skytrail.snapshots")
	msg.Data = data
	msg.Header.Set(publish.InstanceHeader, instance)
	if err := nc.PublishMsg(msg); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestNATSBridgeRelaysRemoteSnapshots(t *testing.T) {
	t.Parallel()

	nc := runNATS(t)
	hub := runHub(t)
	client := NewClient(hub, nil)
	hub.Register <- client

	snap := testSnapshot()
	bridge := NewNATSBridge(hub, nc, "skytrail.snapshots", "local", func(context.Context) (*flights.Snapshot, bool) {
		return snap, true
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Serve(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the subscription time to register with the server.
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	announce(t, nc, "local", snap)
	announce(t, nc, "remote", snap)

	msg := receive(t, client.send)
	if msg.Type != MessageTypeSnapshot {
		t.Fatalf("expected snapshot message, got %q", msg.Type)
	}
	select {
	case extra := <-client.send:
		t.Errorf("expected own announcement to be skipped, got extra %q", extra.Type)
	case <-time.After(100 * time.Millisecond):
	}
	if hub.Latest() != snap {
		t.Errorf("expected relayed snapshot to become the hub's latest")
	}
}

func TestNATSBridgeFallsBackToSummary(t *testing.T) {
	t.Parallel()

	hub := runHub(t)
	client := NewClient(hub, nil)
	hub.Register <- client

	bridge := NewNATSBridge(hub, nil, "skytrail.snapshots", "local", func(context.Context) (*flights.Snapshot, bool) {
		return nil, false
	})
	data, err := json.Marshal(testSnapshot().Summary())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg := nats.NewMsg("skytrail.snapshots")
	msg.Data = data
	msg.Header.Set(publish.InstanceHeader, "remote")
	bridge.handle(context.Background(), msg)

	got := receive(t, client.send)
	if got.Type != MessageTypeSnapshot {
		t.Errorf("expected snapshot summary, got %q", got.Type)
	}
	if hub.Latest() != nil {
		t.Errorf("expected no latest snapshot when the store has none")
	}
}
