// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Layer is one branch of the tree. A service that keeps failing backs off
// its own layer only.
type Layer int

const (
	// IngestLayer holds the snapshot refresher.
	IngestLayer Layer = iota
	// PushLayer holds the websocket hub, snapshot publishers and the NATS bridge.
	PushLayer
	// ServeLayer holds the HTTP server.
	ServeLayer

	layerCount
)

var layerNames = [layerCount]string{"ingest", "push", "serve"}

func (l Layer) String() string {
	if l < 0 || l >= layerCount {
		return fmt.Sprintf("layer(%d)", int(l))
	}
	return layerNames[l]
}

// TreeConfig sets the restart policy shared by every layer. Zero fields
// take the DefaultTreeConfig value.
type TreeConfig struct {
	// FailureThreshold failures inside the decay window put a layer in backoff.
	FailureThreshold float64
	// FailureDecay is the failure half-life in seconds.
	FailureDecay float64
	// FailureBackoff is how long a layer waits once the threshold is hit.
	FailureBackoff time.Duration
	// ShutdownTimeout bounds each service's Serve return after cancel.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig matches suture's defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	d := DefaultTreeConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = d.FailureDecay
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = d.FailureBackoff
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

func (c TreeConfig) spec() suture.Spec {
	return suture.Spec{
		FailureThreshold: c.FailureThreshold,
		FailureDecay:     c.FailureDecay,
		FailureBackoff:   c.FailureBackoff,
		Timeout:          c.ShutdownTimeout,
	}
}

// Tree supervises skytrail's long-running services, one suture supervisor
// per Layer under a common root. While the push layer backs off, the
// serve layer keeps answering from the snapshot cache.
type Tree struct {
	root   *suture.Supervisor
	layers [layerCount]*suture.Supervisor
	config TreeConfig

	mu    sync.Mutex
	names [layerCount][]string
}

// NewTree builds the root and its layers. Supervisor events go to logger.
func NewTree(logger *slog.Logger, config TreeConfig) *Tree {
	config = config.withDefaults()

	rootSpec := config.spec()
	rootSpec.EventHook = (&sutureslog.Handler{Logger: logger}).MustHook()

	t := &Tree{
		root:   suture.New("skytrail", rootSpec),
		config: config,
	}
	// Layers pick up the root's event hook when added.
	for l := Layer(0); l < layerCount; l++ {
		t.layers[l] = suture.New("skytrail/"+l.String(), config.spec())
		t.root.Add(t.layers[l])
	}
	return t
}

// Add runs svc in layer. Services added after Run start immediately.
func (t *Tree) Add(layer Layer, svc suture.Service) suture.ServiceToken {
	if layer < 0 || layer >= layerCount {
		panic(fmt.Sprintf("supervisor: unknown %s", layer))
	}
	t.mu.Lock()
	t.names[layer] = append(t.names[layer], serviceName(svc))
	t.mu.Unlock()
	return t.layers[layer].Add(svc)
}

// Services lists the names added to layer, in order.
func (t *Tree) Services(layer Layer) []string {
	if layer < 0 || layer >= layerCount {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.names[layer]...)
}

// Run starts the tree in the background. The channel yields the root's
// result once ctx is canceled and every layer has stopped.
func (t *Tree) Run(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// Unstopped lists services that were still running ShutdownTimeout after
// their layer was told to stop.
func (t *Tree) Unstopped() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

func serviceName(svc suture.Service) string {
	if s, ok := svc.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", svc)
}
