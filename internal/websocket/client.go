// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/skytrail/internal/logging"
	"github.com/tomtom215/skytrail/internal/metrics"
	"github.com/tomtom215/skytrail/internal/opensky"
	"github.com/tomtom215/skytrail/internal/validation"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 16
)

// clientIDCounter gives clients a stable broadcast order.
var clientIDCounter atomic.Uint64

// Client is a middleman between the websocket connection and the hub
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	// send is owned by the hub, which closes it on unregister.
	send chan Message
	// replies carries responses to client requests and is never closed.
	replies  chan Message
	viewport atomic.Pointer[opensky.BoundingBox]
}

// NewClient creates a new Client with a unique ID
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:      clientIDCounter.Add(1),
		hub:     hub,
		conn:    conn,
		send:    make(chan Message, sendBuffer),
		replies: make(chan Message, sendBuffer),
	}
}

// ID returns the client's unique identifier
func (c *Client) ID() uint64 {
	return c.id
}

// Viewport returns the subscribed bounding box, or nil.
func (c *Client) Viewport() *opensky.BoundingBox {
	return c.viewport.Load()
}

func (c *Client) readPump() {
	defer func() {
		// The hub may already be gone during shutdown.
		select {
		case c.hub.Unregister <- c:
		case <-time.After(writeWait):
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.replyError("malformed message")
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg Message) {
	switch msg.Type {
	case MessageTypePing:
		c.reply(Message{Type: MessageTypePong})

	case MessageTypeSubscribe:
		var box opensky.BoundingBox
		if err := json.Unmarshal(msg.Data, &box); err != nil {
			c.replyError("subscribe requires a bounding box")
			return
		}
		if verr := validation.ValidateStruct(&box); verr != nil {
			c.replyError(verr.Error())
			return
		}
		c.viewport.Store(&box)
		if snap := c.hub.Latest(); snap != nil {
			out, err := viewportMessage(snap, &box)
			if err != nil {
				logging.Error().Err(err).Msg("failed to encode viewport update")
				return
			}
			c.reply(out)
		}

	case MessageTypeUnsubscribe:
		c.viewport.Store(nil)

	default:
		c.replyError("unknown message type " + msg.Type)
	}
}

func (c *Client) reply(msg Message) {
	select {
	case c.replies <- msg:
	default:
		logging.Debug().Uint64("client_id", c.id).Str("type", msg.Type).Msg("reply buffer full, dropping")
	}
}

func (c *Client) replyError(text string) {
	msg, err := newMessage(MessageTypeError, ErrorData{Message: text})
	if err == nil {
		c.reply(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// The hub closed the channel
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(message); err != nil {
				return
			}

		case message := <-c.replies:
			if err := c.write(message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		logging.Error().Err(err).Str("type", message.Type).Msg("failed to encode websocket message")
		return nil
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set write deadline")
		return err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		logging.Debug().Err(err).Uint64("client_id", c.id).Msg("websocket write failed")
		return err
	}
	metrics.WSMessagesSent.Inc()
	return nil
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
