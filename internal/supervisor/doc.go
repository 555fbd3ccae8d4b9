// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

/*
Package supervisor provides process supervision for skytrail using suture v4.

A Tree has one suture supervisor per Layer under the "skytrail" root:

	skytrail
	├── skytrail/ingest   snapshot-refresher
	├── skytrail/push     websocket-hub, snapshot-publisher, nats-websocket-bridge
	└── skytrail/serve    http-server

Services join a layer with Tree.Add:

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.Add(supervisor.IngestLayer, services.NewRefresherService(refresher))
	tree.Add(supervisor.ServeLayer, httpSvc)
	errCh := tree.Run(ctx)

The publisher and bridge are only present when NATS or Kafka is configured.
A broker outage puts the push layer in backoff while /api/v1/flights keeps
answering from the snapshot cache.

Zero TreeConfig fields take DefaultTreeConfig, which matches suture.

# Logging

Supervisor events such as panics and backoff are logged through
sutureslog into the slog logger passed to NewTree. The server
binary builds that logger on top of zerolog so supervisor events share the
request log format.

# Debugging Shutdown

	report, err := tree.Unstopped()
	for _, svc := range report {
	    logging.Warn().Str("service", svc.Name).Msg("service did not stop")
	}

Common causes are goroutines ignoring ctx and network I/O without
deadlines.
*/
package supervisor
