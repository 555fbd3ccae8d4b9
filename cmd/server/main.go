// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/skytrail/internal/api"
	"github.com/tomtom215/skytrail/internal/broker"
	"github.com/tomtom215/skytrail/internal/config"
	"github.com/tomtom215/skytrail/internal/flights"
	"github.com/tomtom215/skytrail/internal/logging"
	"github.com/tomtom215/skytrail/internal/middleware"
	"github.com/tomtom215/skytrail/internal/opensky"
	"github.com/tomtom215/skytrail/internal/publish"
	"github.com/tomtom215/skytrail/internal/supervisor"
	"github.com/tomtom215/skytrail/internal/supervisor/services"
	ws "github.com/tomtom215/skytrail/internal/websocket"
)

const monitorSamples = 1000

//nolint:gocyclo // sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	instance := uuid.NewString()
	logging.Info().
		Str("instance", instance).
		Bool("credentials", cfg.OpenSky.HasCredentials()).
		Str("snapshot_store", cfg.Snapshot.Store).
		Dur("refresh_interval", cfg.Refresh.Interval).
		Msg("Starting skytrail with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Upstream
	tokens := opensky.NewTokenCache(opensky.TokenConfig{
		ClientID:     cfg.OpenSky.ClientID,
		ClientSecret: cfg.OpenSky.ClientSecret,
		TokenURL:     cfg.OpenSky.TokenURL,
		Leeway:       cfg.OpenSky.TokenLeeway,
	})
	if !tokens.Configured() {
		logging.Warn().Msg("CLIENT_ID/CLIENT_SECRET not set, upstream requests go out anonymously")
	}
	client := opensky.NewClient(opensky.ClientConfig{
		BaseURL:           cfg.OpenSky.BaseURL,
		UserAgent:         cfg.OpenSky.UserAgent,
		Timeout:           cfg.OpenSky.Timeout,
		RequestsPerMinute: cfg.OpenSky.RequestsPerMinute,
	}, tokens)

	// Broker
	nb, err := broker.Open(&cfg.Publish)
	if err != nil && !errors.Is(err, broker.ErrDisabled) {
		logging.Fatal().Err(err).Msg("Failed to open NATS")
	}

	// Snapshot store
	store, closeStore, err := openStore(ctx, &cfg.Snapshot, nb)
	if err != nil {
		closeBroker(nb)
		logging.Fatal().Err(err).Msg("Failed to open snapshot store")
	}

	snapshots := flights.NewSnapshotCache(store, flights.CacheConfig{
		FreshWindow: cfg.Snapshot.FreshWindow,
		MaxWindow:   cfg.Snapshot.MaxWindow,
	})
	flightSvc := flights.NewService(client, snapshots)
	tracks := flights.NewTrackService(client, cfg.Tracks.CacheTTL)
	refresher := flights.NewRefresher(flightSvc, flights.RefresherConfig{
		Interval: cfg.Refresh.Interval,
		Timeout:  cfg.Refresh.Timeout,
	})

	// Push
	hub := ws.NewHub()
	flightSvc.OnSnapshot(hub.BroadcastSnapshot)

	pubs, err := buildPublishers(&cfg.Publish, nb, instance)
	if err != nil {
		_ = closeStore()
		closeBroker(nb)
		logging.Fatal().Err(err).Msg("Failed to create snapshot publishers")
	}
	var dispatcher *publish.Dispatcher
	if len(pubs) > 0 {
		dispatcher = publish.NewDispatcher(publish.DefaultPublishTimeout, pubs...)
		flightSvc.OnSnapshot(dispatcher.Enqueue)
	}

	var bridge *ws.NATSBridge
	if nb != nil && cfg.Snapshot.Store == config.StoreNATS {
		bridge = ws.NewNATSBridge(hub, nb.Conn, cfg.Publish.NATSSubject, instance, snapshots.Get)
	}

	// HTTP
	chiCfg := api.DefaultChiMiddlewareConfig()
	chiCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	chiCfg.RateLimitRequests = cfg.Security.RateLimitRequests
	chiCfg.RateLimitWindow = cfg.Security.RateLimitWindow
	chiCfg.RateLimitDisabled = cfg.Security.RateLimitDisabled

	handler := api.NewHandler(api.Dependencies{
		Flights:          flightSvc,
		Tracks:           tracks,
		Refresher:        refresher,
		WebSocket:        ws.NewHandler(hub, cfg.Security.CORSOrigins),
		Monitor:          middleware.NewPerformanceMonitor(monitorSamples),
		CircuitState:     client.CircuitState,
		WebSocketClients: hub.GetClientCount,
		CronSecret:       cfg.Refresh.CronSecret,
		AuthConfigured:   tokens.Configured(),
	})
	router := api.NewRouter(handler, api.NewChiMiddleware(chiCfg))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	// Supervisor tree
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.Add(supervisor.IngestLayer, services.NewRefresherService(refresher))
	tree.Add(supervisor.PushLayer, services.NewWebSocketHubService(hub))
	if dispatcher != nil {
		tree.Add(supervisor.PushLayer, dispatcher)
	}
	if bridge != nil {
		tree.Add(supervisor.PushLayer, bridge)
	}

	httpSvc := services.NewHTTPServerService(server, 10*time.Second)
	httpSvc.OnReady(handler.SetReady)
	tree.Add(supervisor.ServeLayer, httpSvc)

	for _, layer := range []supervisor.Layer{supervisor.IngestLayer, supervisor.PushLayer, supervisor.ServeLayer} {
		logging.Info().Str("layer", layer.String()).Strs("services", tree.Services(layer)).Msg("Supervisor layer ready")
	}
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.Run(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.Unstopped()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	tracks.Close()
	if dispatcher != nil {
		if err := dispatcher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing snapshot publishers")
		}
	}
	if err := closeStore(); err != nil {
		logging.Error().Err(err).Msg("Error closing snapshot store")
	}
	closeBroker(nb)

	logging.Info().Msg("Application stopped gracefully")
}

func closeBroker(b *broker.Broker) {
	if b == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Close(ctx); err != nil {
		logging.Error().Err(err).Msg("Error closing NATS")
	}
}
