// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/skytrail/internal/flights"
	"github.com/tomtom215/skytrail/internal/opensky"
)

type mockManager struct {
	started    atomic.Bool
	stopped    atomic.Bool
	startError error
	stopError  error
}

func (m *mockManager) Start(ctx context.Context) error {
	if m.startError != nil {
		return m.startError
	}
	m.started.Store(true)
	return nil
}

func (m *mockManager) Stop() error {
	m.stopped.Store(true)
	return m.stopError
}

func TestRefresherServiceInterface(t *testing.T) {
	t.Run("implements suture.Service", func(t *testing.T) {
		var _ suture.Service = (*RefresherService)(nil)
	})
}

func TestRefresherService(t *testing.T) {
	t.Run("starts underlying refresher", func(t *testing.T) {
		mockMgr := &mockManager{}
		svc := NewRefresherService(mockMgr)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- svc.Serve(ctx)
		}()

		var started bool
		for i := 0; i < 10; i++ {
			time.Sleep(20 * time.Millisecond)
			if mockMgr.started.Load() {
				started = true
				break
			}
		}
		if !started {
			t.Error("refresher was not started")
		}

		<-done
	})

	t.Run("stops manager on context cancellation", func(t *testing.T) {
		mockMgr := &mockManager{}
		svc := NewRefresherService(mockMgr)

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- svc.Serve(ctx)
		}()

		for i := 0; i < 10; i++ {
			time.Sleep(20 * time.Millisecond)
			if mockMgr.started.Load() {
				break
			}
		}
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Error("service did not stop in time")
		}

		if !mockMgr.stopped.Load() {
			t.Error("refresher was not stopped")
		}
	})

	t.Run("propagates start error for restart", func(t *testing.T) {
		expectedErr := errors.New("refresher is already running")
		mockMgr := &mockManager{
			startError: expectedErr,
		}
		svc := NewRefresherService(mockMgr)

		err := svc.Serve(context.Background())
		if err == nil {
			t.Error("expected error to be propagated")
		}
		if !errors.Is(err, expectedErr) {
			t.Errorf("expected wrapped start error, got %v", err)
		}

		if mockMgr.started.Load() {
			t.Error("manager should not be started on error")
		}
	})

	t.Run("handles stop error gracefully", func(t *testing.T) {
		mockMgr := &mockManager{
			stopError: errors.New("stop failed"),
		}
		svc := NewRefresherService(mockMgr)

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- svc.Serve(ctx)
		}()

		for i := 0; i < 10; i++ {
			time.Sleep(20 * time.Millisecond)
			if mockMgr.started.Load() {
				break
			}
		}
		cancel()

		err := <-done
		if err == nil {
			t.Error("expected error from stop failure")
		}
	})

	t.Run("String returns service name", func(t *testing.T) {
		svc := NewRefresherService(&mockManager{})
		if svc.String() != "snapshot-refresher" {
			t.Errorf("expected 'snapshot-refresher', got %q", svc.String())
		}
	})
}

func TestRefresherServiceWithSupervisor(t *testing.T) {
	t.Run("supervisor restarts on start failure", func(t *testing.T) {
		startCount := atomic.Int32{}

		mockMgr := &restartableMockManager{
			startCount: &startCount,
			failUntil:  2,
		}
		svc := NewRefresherService(mockMgr)

		sup := suture.New("refresher-test", suture.Spec{
			FailureThreshold: 10,
			FailureBackoff:   10 * time.Millisecond,
			Timeout:          100 * time.Millisecond,
		})
		sup.Add(svc)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		go func() {
			if err := sup.Serve(ctx); err != nil && err != context.DeadlineExceeded && err != context.Canceled {
				t.Logf("Supervisor serve error (expected during test): %v", err)
			}
		}()
		time.Sleep(200 * time.Millisecond)

		if startCount.Load() < 3 {
			t.Errorf("expected at least 3 start attempts, got %d", startCount.Load())
		}
	})
}

// restartableMockManager fails the first failUntil starts.
type restartableMockManager struct {
	startCount *atomic.Int32
	stopCount  atomic.Int32
	failUntil  int32
}

func (m *restartableMockManager) Start(ctx context.Context) error {
	count := m.startCount.Add(1)
	if count <= m.failUntil {
		return errors.New("simulated start failure")
	}
	return nil
}

func (m *restartableMockManager) Stop() error {
	m.stopCount.Add(1)
	return nil
}

type countingIngester struct {
	calls atomic.Int32
}

func (c *countingIngester) Ingest(ctx context.Context, bbox *opensky.BoundingBox) (*flights.Snapshot, error) {
	c.calls.Add(1)
	return &flights.Snapshot{Time: time.Now().Unix(), Source: opensky.Anonymous}, nil
}

func TestRefresherServiceWithRealRefresher(t *testing.T) {
	ingester := &countingIngester{}
	refresher := flights.NewRefresher(ingester, flights.RefresherConfig{Interval: 20 * time.Millisecond})
	svc := NewRefresherService(refresher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Serve(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for ingester.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := ingester.calls.Load(); got < 2 {
		t.Errorf("expected at least 2 refresh runs, got %d", got)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	last, ok := refresher.Last()
	if !ok || !last.Success {
		t.Errorf("expected successful last refresh, got %+v (ok=%v)", last, ok)
	}
}
