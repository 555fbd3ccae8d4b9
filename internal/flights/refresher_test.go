// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package flights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/skytrail/internal/opensky"
)

func TestRefresherRunOnceSuccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	up := newFakeStates(stateRow("aaaaaa", 1.0, 2.0), stateRow("bbbbbb", 3.0, 4.0))
	svc, _ := newTestService(up)
	r := NewRefresher(svc, RefresherConfig{})

	res := r.RunOnce(ctx)
	if !res.Success || res.Err != nil {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Count != 2 {
		t.Errorf("expected count 2, got %d", res.Count)
	}
	if res.Source != opensky.Authenticated {
		t.Errorf("expected authenticated, got %s", res.Source)
	}
	if !svc.Cache().IsFresh(ctx) {
		t.Error("expected refresh to populate the cache")
	}

	last, ok := r.Last()
	if !ok || last.Count != 2 {
		t.Errorf("expected Last to report the run, got %+v", last)
	}
}

func TestRefresherRunOnceFailureKeepsSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	up := newFakeStates(stateRow("aaaaaa", 1.0, 2.0))
	svc, clock := newTestService(up)
	r := NewRefresher(svc, RefresherConfig{})

	if res := r.RunOnce(ctx); !res.Success {
		t.Fatalf("expected first run to succeed: %v", res.Err)
	}
	before, _ := svc.Cache().Get(ctx)
	clock.Advance(20 * time.Second)

	up.setErr(upstreamErr(opensky.KindUnavailable))
	res := r.RunOnce(ctx)
	if res.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, opensky.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", res.Err)
	}

	after, _ := svc.Cache().Get(ctx)
	if !after.CapturedAt.Equal(before.CapturedAt) {
		t.Error("expected failed refresh to leave the snapshot untouched")
	}
}

func TestRefresherRunOnceTimeout(t *testing.T) {
	t.Parallel()
	up := newFakeStates()
	up.gate = make(chan struct{}) // never opened
	svc, _ := newTestService(up)
	r := NewRefresher(svc, RefresherConfig{Timeout: 20 * time.Millisecond})

	res := r.RunOnce(context.Background())
	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", res.Err)
	}
	if got := refreshErrorType(res.Err); got != "timeout" {
		t.Errorf("expected error type timeout, got %q", got)
	}
}

func TestRefresherStartStop(t *testing.T) {
	t.Parallel()
	up := newFakeStates(stateRow("aaaaaa", 1.0, 2.0))
	svc, _ := newTestService(up)
	r := NewRefresher(svc, RefresherConfig{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Error("expected second Start to fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for up.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := up.calls.Load(); got < 3 {
		t.Errorf("expected at least 3 ticker runs, got %d", got)
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := r.Stop(); err == nil {
		t.Error("expected second Stop to fail")
	}
}

func TestRefresherDisabledInterval(t *testing.T) {
	t.Parallel()
	up := newFakeStates()
	svc, _ := newTestService(up)
	r := NewRefresher(svc, RefresherConfig{})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := up.calls.Load(); got != 0 {
		t.Errorf("expected no upstream calls with the ticker disabled, got %d", got)
	}
}

func TestRefreshErrorType(t *testing.T) {
	t.Parallel()

	if got := refreshErrorType(upstreamErr(opensky.KindRateLimited)); got != "rate_limited" {
		t.Errorf("expected rate_limited, got %q", got)
	}
	if got := refreshErrorType(errors.New("boom")); got != "unknown" {
		t.Errorf("expected unknown, got %q", got)
	}
}
