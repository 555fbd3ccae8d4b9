// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/skytrail/internal/flights"
	"github.com/tomtom215/skytrail/internal/opensky"
)

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func testSnapshot() *flights.Snapshot {
	return &flights.Snapshot{
		Flights: []flights.FlightRecord{
			{ICAO24: "3c6444", Latitude: 50.03, Longitude: 8.55},
			{ICAO24: "4ca7b4", Latitude: 53.42, Longitude: -6.27},
			{ICAO24: "a0b1c2", Latitude: 40.64, Longitude: -73.78},
		},
		Time:       1700000000,
		Count:      3,
		Source:     opensky.Authenticated,
		CapturedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHubBroadcastsSummary(t *testing.T) {
	t.Parallel()

	hub := runHub(t)
	client := NewClient(hub, nil)
	hub.Register <- client

	hub.BroadcastSnapshot(testSnapshot())

	msg := receive(t, client.send)
	if msg.Type != MessageTypeSnapshot {
		t.Fatalf("expected %q message, got %q", MessageTypeSnapshot, msg.Type)
	}
	var sum flights.Summary
	if err := json.Unmarshal(msg.Data, &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.Count != 3 || sum.Time != 1700000000 || sum.Source != opensky.Authenticated {
		t.Errorf("expected summary of the snapshot, got %+v", sum)
	}
}

func TestHubFiltersViewportSubscribers(t *testing.T) {
	t.Parallel()

	hub := runHub(t)
	europe := NewClient(hub, nil)
	europe.viewport.Store(&opensky.BoundingBox{LaMin: 35, LoMin: -10, LaMax: 60, LoMax: 30})
	hub.Register <- europe

	hub.BroadcastSnapshot(testSnapshot())

	msg := receive(t, europe.send)
	if msg.Type != MessageTypeFlights {
		t.Fatalf("expected %q message, got %q", MessageTypeFlights, msg.Type)
	}
	var data ViewportData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("decode viewport: %v", err)
	}
	if data.Count != 2 || len(data.Flights) != 2 {
		t.Errorf("expected 2 European flights, got %d (%d records)", data.Count, len(data.Flights))
	}
	for _, f := range data.Flights {
		if f.ICAO24 == "a0b1c2" {
			t.Errorf("expected JFK flight to be filtered out")
		}
	}
}

func TestHubIgnoresBoundingBoxSnapshots(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	snap := testSnapshot()
	snap.BoundingBox = &opensky.BoundingBox{LaMin: 45, LoMin: 5, LaMax: 48, LoMax: 11}
	hub.BroadcastSnapshot(snap)

	if hub.Latest() != nil {
		t.Errorf("expected bbox snapshot to be ignored")
	}
	if len(hub.snapshots) != 0 {
		t.Errorf("expected nothing queued, got %d", len(hub.snapshots))
	}
}

func TestHubDisconnectsSlowClient(t *testing.T) {
	t.Parallel()

	hub := runHub(t)
	slow := &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message)}
	hub.Register <- slow
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	hub.BroadcastJSON(MessageTypePong, nil)

	waitFor(t, func() bool { return hub.GetClientCount() == 0 })
	if _, ok := <-slow.send; ok {
		t.Errorf("expected slow client's channel to be closed")
	}
}

func TestHubUnregister(t *testing.T) {
	t.Parallel()

	hub := runHub(t)
	client := NewClient(hub, nil)
	hub.Register <- client
	hub.Unregister <- client

	waitFor(t, func() bool { return hub.GetClientCount() == 0 })
	// A second unregister must not close the channel twice.
	hub.Unregister <- client
}

func TestHubShutdownClosesClients(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.RunWithContext(ctx) }()

	client := NewClient(hub, nil)
	hub.Register <- client
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-client.send; ok {
		t.Errorf("expected client channel closed on shutdown")
	}
	if n := hub.GetClientCount(); n != 0 {
		t.Errorf("expected 0 clients, got %d", n)
	}
}

func TestGetShutdownReason(t *testing.T) {
	t.Parallel()

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if got := getShutdownReason(canceled); got != ShutdownReasonContextCanceled {
		t.Errorf("expected %s, got %s", ShutdownReasonContextCanceled, got)
	}

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	if got := getShutdownReason(expired); got != ShutdownReasonContextDeadline {
		t.Errorf("expected %s, got %s", ShutdownReasonContextDeadline, got)
	}
}
