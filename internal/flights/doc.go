// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

/*
Package flights turns raw OpenSky state vectors into snapshots and decides
when a snapshot may be served from cache.

# Snapshot lifecycle

A global fetch (no bounding box) produces a Snapshot that is written to the
SnapshotCache. Its age is measured from the instant it was stored, not from
the upstream timestamp:

	age <  fresh window           fresh    served without an upstream call
	fresh window <= age < max     stale    a fetch is attempted
	age >= max window             expired  a fetch is attempted
	no snapshot                   absent   a fetch is attempted

A failed fetch never modifies the cache. Spatially scoped fetches are
returned to the caller and never stored, since a cached global snapshot
cannot answer a bounding-box query.

# Stores

The SnapshotCache keeps its single snapshot in a Store:

  - MemoryStore: process-local, the default
  - BadgerStore: survives restarts, backed by github.com/dgraph-io/badger/v4
  - NATSStore: shared between instances through a JetStream key-value bucket

# Refreshing

Refresher performs one bounded global ingest per trigger. It runs on a
ticker when supervised and can be triggered on demand through the cron
endpoint in package api.
*/
package flights
