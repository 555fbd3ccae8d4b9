// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

/*
Package websocket pushes snapshot updates to connected map clients.

A Hub owns the client set and fans every new global snapshot out to them.
Clients that have not subscribed to a viewport receive a "snapshot" summary
(time, count, source, captured_at) and are expected to fetch /api/v1/flights.
Clients that sent a "subscribe" message with a bounding box receive a
"flights" message carrying only the aircraft inside their box.

Client messages:

	{"type":"ping"}
	{"type":"subscribe","data":{"lamin":45,"lomin":5,"lamax":48,"lomax":11}}
	{"type":"unsubscribe"}

Server messages:

	{"type":"pong"}
	{"type":"snapshot","data":{...summary...}}
	{"type":"flights","data":{"time":..,"count":..,"bbox":{..},"flights":[..]}}
	{"type":"error","data":{"message":".."}}

Slow clients whose send buffer fills are disconnected rather than blocking
the broadcast. When several instances share a NATS snapshot store, a
NATSBridge relays snapshot announcements from other instances into the
local hub.
*/
package websocket
