// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func TestHandlerPingPong(t *testing.T) {
	t.Parallel()

	hub := runHub(t)
	srv := httptest.NewServer(NewHandler(hub, []string{"*"}))
	defer srv.Close()

	conn, _, err := dial(t, srv, "http://map.example")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != MessageTypePong {
		t.Errorf("expected pong, got %q", msg.Type)
	}
}

func TestHandlerSubscribeSendsCurrentViewport(t *testing.T) {
	t.Parallel()

	hub := runHub(t)
	hub.BroadcastSnapshot(testSnapshot())
	srv := httptest.NewServer(NewHandler(hub, []string{"http://map.example"}))
	defer srv.Close()

	conn, _, err := dial(t, srv, "http://map.example")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := `{"type":"subscribe","data":{"lamin":45,"lomin":5,"lamax":55,"lomax":11}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(sub)); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readMessage(t, conn)
	if msg.Type != MessageTypeFlights {
		t.Fatalf("expected flights, got %q", msg.Type)
	}
	var data ViewportData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Count != 1 || data.Flights[0].ICAO24 != "3c6444" {
		t.Errorf("expected only 3c6444 in viewport, got %+v", data.Flights)
	}
}

func TestHandlerRejectsInvalidSubscribe(t *testing.T) {
	t.Parallel()

	hub := runHub(t)
	srv := httptest.NewServer(NewHandler(hub, []string{"*"}))
	defer srv.Close()

	conn, _, err := dial(t, srv, "http://map.example")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	tests := []string{
		`{"type":"subscribe","data":{"lamin":91,"lomin":5,"lamax":92,"lomax":11}}`,
		`{"type":"subscribe","data":{"lamin":50,"lomin":5,"lamax":45,"lomax":11}}`,
		`{"type":"subscribe","data":"nope"}`,
		`{"type":"teleport"}`,
		`not json`,
	}
	for _, payload := range tests {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
			t.Fatalf("write: %v", err)
		}
		if msg := readMessage(t, conn); msg.Type != MessageTypeError {
			t.Errorf("payload %s: expected error message, got %q", payload, msg.Type)
		}
	}
}

func TestHandlerOriginCheck(t *testing.T) {
	t.Parallel()

	hub := runHub(t)
	srv := httptest.NewServer(NewHandler(hub, []string{"http://map.example"}))
	defer srv.Close()

	for _, origin := range []string{"", "http://evil.example"} {
		conn, resp, err := dial(t, srv, origin)
		if err == nil {
			conn.Close()
			t.Errorf("origin %q: expected handshake to fail", origin)
			continue
		}
		if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Errorf("origin %q: expected 403 response, got %+v", origin, resp)
		}
	}
}
