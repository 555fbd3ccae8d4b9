// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

/*
Package main is the entry point for the skytrail server.

Skytrail serves live aircraft positions from the OpenSky Network to map
clients. It keeps one global snapshot fresh for every reader, so upstream
quota is spent once per freshness window rather than once per visitor.

# Application Architecture

	RootSupervisor ("skytrail")
	├── DataSupervisor ("data-layer")
	│   └── snapshot-refresher
	├── MessagingSupervisor ("messaging-layer")
	│   ├── websocket-hub
	│   ├── snapshot-publisher (NATS and/or Kafka)
	│   └── nats-websocket-bridge (SNAPSHOT_STORE=nats)
	└── APISupervisor ("api-layer")
	    └── http-server

Initialization order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog, with a slog adapter for the supervisor
 3. Upstream: OAuth2 token cache and the OpenSky client
 4. Broker: embedded or external NATS, when configured
 5. Snapshot store: memory, badger or NATS key-value
 6. Flight services: snapshot cache, track cache, refresher
 7. Push: websocket hub and broker publishers
 8. HTTP: chi router under the supervisor tree

# Example Usage

Anonymous, single instance:

	./skytrail

Authenticated with scheduled refresh:

	export CLIENT_ID=your-client-id
	export CLIENT_SECRET=your-client-secret
	export REFRESH_INTERVAL=10s
	./skytrail

Several replicas sharing one snapshot through an external NATS:

	export SNAPSHOT_STORE=nats
	export NATS_URL=nats://nats:4222
	./skytrail

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains for up
to 10s, the hub closes its clients, and the store and broker are closed
after the tree has stopped.
*/
package main
