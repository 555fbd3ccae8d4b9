// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

/*
Package services provides suture.Service wrappers for skytrail components.

Each wrapper translates a component's own lifecycle (Start/Stop,
RunWithContext, ListenAndServe) into suture's context-aware Serve method:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTPServerService wraps *http.Server. Shutdown uses a fresh context bounded
by the configured timeout, and an optional readiness hook flips /readyz
before the drain starts.

WebSocketHubService runs websocket.Hub, which closes every client when its
context ends.

RefresherService wraps flights.Refresher's Start/Stop pair so scheduled
snapshot refreshes restart with backoff if Start fails.

The publish.Dispatcher and websocket.NATSBridge implement suture.Service
directly and are added to the tree without a wrapper.

# Usage

	tree.Add(supervisor.IngestLayer, services.NewRefresherService(refresher))
	tree.Add(supervisor.PushLayer, services.NewWebSocketHubService(hub))
	tree.Add(supervisor.PushLayer, dispatcher)

	httpSvc := services.NewHTTPServerService(server, 10*time.Second)
	httpSvc.OnReady(handler.SetReady)
	tree.Add(supervisor.ServeLayer, httpSvc)

# Return Values

  - ctx.Err() on requested shutdown
  - a wrapped error when the component fails, which triggers a restart
  - nil only when the component stopped on its own and should stay down
*/
package services
