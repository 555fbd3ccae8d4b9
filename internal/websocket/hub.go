// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package websocket

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/tomtom215/skytrail/internal/flights"
	"github.com/tomtom215/skytrail/internal/logging"
	"github.com/tomtom215/skytrail/internal/metrics"
	"github.com/tomtom215/skytrail/internal/opensky"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypeSnapshot    = "snapshot"
	MessageTypeFlights     = "flights"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeError       = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ViewportData is the payload of a "flights" message.
type ViewportData struct {
	Time        int64                  `json:"time"`
	Count       int                    `json:"count"`
	Source      opensky.AuthMode       `json:"source"`
	BoundingBox *opensky.BoundingBox   `json:"bbox"`
	Flights     []flights.FlightRecord `json:"flights"`
}

// ErrorData is the payload of an "error" message.
type ErrorData struct {
	Message string `json:"message"`
}

// Hub maintains the set of active clients and broadcasts snapshots to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	snapshots  chan *flights.Snapshot
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	latest atomic.Pointer[flights.Snapshot]
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		snapshots:  make(chan *flights.Snapshot, 4),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub until ctx is canceled, then closes every
// client and returns ctx.Err().
//
// Lifecycle events are drained before broadcasts so a client registered
// ahead of a snapshot always receives it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(func(*Client) (Message, bool) { return message, true })
		case snap := <-h.snapshots:
			h.broadcastSnapshot(snap)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Inc()
	logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	if ok {
		metrics.WSConnections.Dec()
		logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	// ctx.Err() is expected here and deliberately not logged as an error.
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// sortedClients returns clients ordered by id. Caller holds h.mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients sends the message built for each client in id order.
// Clients whose buffer is full are dropped.
func (h *Hub) broadcastToClients(build func(*Client) (Message, bool)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var toRemove []*Client
	for _, client := range h.sortedClients() {
		message, ok := build(client)
		if !ok {
			continue
		}
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WSConnections.Dec()
		logging.Warn().Uint64("client_id", client.id).Msg("websocket client too slow, disconnected")
	}
}

func (h *Hub) broadcastSnapshot(snap *flights.Snapshot) {
	summary, err := newMessage(MessageTypeSnapshot, snap.Summary())
	if err != nil {
		logging.Error().Err(err).Msg("failed to encode snapshot summary")
		return
	}
	h.broadcastToClients(func(c *Client) (Message, bool) {
		box := c.Viewport()
		if box == nil {
			return summary, true
		}
		msg, err := viewportMessage(snap, box)
		if err != nil {
			logging.Error().Err(err).Uint64("client_id", c.id).Msg("failed to encode viewport update")
			return Message{}, false
		}
		return msg, true
	})
}

// closeAllClients closes every client in id order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
		metrics.WSConnections.Dec()
	}
}

// BroadcastSnapshot queues a global snapshot for delivery. It matches the
// flights.Service observer signature. Non-global snapshots are ignored.
func (h *Hub) BroadcastSnapshot(snap *flights.Snapshot) {
	if snap == nil || !snap.Global() {
		return
	}
	h.latest.Store(snap)

	select {
	case h.snapshots <- snap:
	default:
		logging.Warn().Int("count", snap.Count).Msg("snapshot channel full, dropping websocket update")
	}
}

// BroadcastJSON sends a JSON message to all connected clients
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	message, err := newMessage(messageType, data)
	if err != nil {
		logging.Error().Err(err).Str("message_type", messageType).Msg("failed to encode broadcast")
		return
	}

	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping JSON message")
	}
}

// Latest returns the most recent snapshot handed to the hub.
func (h *Hub) Latest() *flights.Snapshot {
	return h.latest.Load()
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func newMessage(messageType string, data interface{}) (Message, error) {
	if data == nil {
		return Message{Type: messageType}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: messageType, Data: raw}, nil
}

func viewportMessage(snap *flights.Snapshot, box *opensky.BoundingBox) (Message, error) {
	inside := snap.Within(box)
	return newMessage(MessageTypeFlights, ViewportData{
		Time:        snap.Time,
		Count:       len(inside),
		Source:      snap.Source,
		BoundingBox: box,
		Flights:     inside,
	})
}
