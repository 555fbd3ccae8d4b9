// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/tomtom215/skytrail/internal/flights"
)

// NATSPublisher announces each snapshot's summary on a subject through a
// watermill publisher. The flights themselves stay in the snapshot store.
// Message metadata travels as NATS headers, so subscribers read the
// instance id from InstanceHeader.
type NATSPublisher struct {
	pub      message.Publisher
	subject  string
	instance string
}

// NewNATSPublisher dials url with its own connection and publishes on
// subject over core NATS.
func NewNATSPublisher(url, subject, instance string, logger watermill.LoggerAdapter) (*NATSPublisher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL: url,
		NatsOptions: []nats.Option{
			nats.Name("skytrail-publisher"),
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2 * time.Second),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					logger.Error("NATS publisher disconnected", err, nil)
				}
			}),
		},
		Marshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return newNATSPublisher(pub, subject, instance), nil
}

func newNATSPublisher(pub message.Publisher, subject, instance string) *NATSPublisher {
	return &NATSPublisher{pub: pub, subject: subject, instance: instance}
}

func (p *NATSPublisher) Name() string { return "nats" }

func (p *NATSPublisher) Publish(ctx context.Context, snap *flights.Snapshot) error {
	data, err := json.Marshal(snap.Summary())
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	msg.Metadata.Set(InstanceHeader, p.instance)

	if err := p.pub.Publish(p.subject, msg); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

// Close closes the publisher's connection.
func (p *NATSPublisher) Close() error {
	return p.pub.Close()
}
