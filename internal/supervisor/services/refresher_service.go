// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package services

import (
	"context"
	"fmt"
)

// StartStopManager is the Start/Stop lifecycle of *flights.Refresher.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// RefresherService adapts the snapshot refresher to suture's Serve pattern:
//  1. Start(ctx) launches the ticker goroutine
//  2. Serve blocks until ctx is canceled
//  3. Stop() waits for an in-flight refresh to finish
type RefresherService struct {
	manager StartStopManager
	name    string
}

// NewRefresherService wraps a refresher for the messaging layer.
//
//	refresher := flights.NewRefresher(svc, flights.RefresherConfig{Interval: cfg.Refresh.Interval})
//	tree.Add(supervisor.IngestLayer, services.NewRefresherService(refresher))
func NewRefresherService(manager StartStopManager) *RefresherService {
	return &RefresherService{
		manager: manager,
		name:    "snapshot-refresher",
	}
}

// Serve implements suture.Service. A Start failure is returned so the
// supervisor restarts the service with backoff.
func (s *RefresherService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("refresher start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("refresher stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (s *RefresherService) String() string {
	return s.name
}
