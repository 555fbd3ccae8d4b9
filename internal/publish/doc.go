// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

// Package publish fans global snapshots out to message brokers.
//
// The Dispatcher receives snapshots from flights.Service observers and
// hands them to each configured Publisher from a single supervised
// goroutine. Only the newest pending snapshot is kept: a broker that falls
// behind skips intermediate snapshots instead of queueing them.
package publish
