// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tomtom215/skytrail/internal/config"
	"github.com/tomtom215/skytrail/internal/logging"
)

// ErrDisabled is returned by Open when no NATS connection is configured.
var ErrDisabled = errors.New("nats not configured")

// Broker is an open NATS connection and, when embedded, its server.
type Broker struct {
	Conn   *nats.Conn
	URL    string
	server *EmbeddedServer
}

// Open starts the embedded server if configured and connects to it or to
// the external URL.
func Open(cfg *config.PublishConfig) (*Broker, error) {
	if !cfg.NATSEnabled() {
		return nil, ErrDisabled
	}

	b := &Broker{}
	url := cfg.NATSURL
	if cfg.NATSEmbedded {
		srv, err := NewEmbeddedServer(ServerConfig{
			Host:     "127.0.0.1",
			Port:     cfg.NATSPort,
			StoreDir: cfg.NATSStoreDir,
			Quiet:    true,
		})
		if err != nil {
			return nil, err
		}
		b.server = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	} else {
		logging.Info().Str("url", url).Msg("Using external NATS server")
	}

	nc, err := Connect(url)
	if err != nil {
		_ = b.Close(context.Background())
		return nil, err
	}
	b.Conn = nc
	b.URL = url
	return b, nil
}

// Connect dials url with reconnects enabled indefinitely.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("skytrail"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Embedded reports whether the broker runs an in-process server.
func (b *Broker) Embedded() bool {
	return b.server != nil
}

// Close drains the connection and stops the embedded server.
func (b *Broker) Close(ctx context.Context) error {
	var errs []error
	if b.Conn != nil {
		if err := b.Conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, fmt.Errorf("drain: %w", err))
		}
	}
	if b.server != nil {
		if err := b.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
		}
	}
	return errors.Join(errs...)
}
