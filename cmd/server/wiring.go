// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/skytrail/internal/broker"
	"github.com/tomtom215/skytrail/internal/config"
	"github.com/tomtom215/skytrail/internal/flights"
	"github.com/tomtom215/skytrail/internal/logging"
	"github.com/tomtom215/skytrail/internal/publish"
)

// errStoreNeedsNATS is returned when SNAPSHOT_STORE=nats has no broker.
var errStoreNeedsNATS = errors.New("snapshot store nats requires NATS_URL or NATS_EMBEDDED")

// openStore builds the configured snapshot store. The returned close func
// is never nil.
func openStore(ctx context.Context, cfg *config.SnapshotConfig, b *broker.Broker) (flights.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.StoreBadger:
		bs, err := flights.OpenBadgerStore(cfg.BadgerPath)
		if err != nil {
			return nil, noop, err
		}
		logging.Info().Str("path", cfg.BadgerPath).Msg("Snapshot store: badger")
		return bs, bs.Close, nil

	case config.StoreNATS:
		if b == nil {
			return nil, noop, errStoreNeedsNATS
		}
		ns, err := flights.NewNATSStore(ctx, b.Conn, cfg.NATSBucket)
		if err != nil {
			return nil, noop, err
		}
		logging.Info().Str("bucket", cfg.NATSBucket).Msg("Snapshot store: nats key-value")
		return ns, noop, nil

	case config.StoreMemory, "":
		logging.Info().Msg("Snapshot store: memory")
		return flights.NewMemoryStore(), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown snapshot store %q", cfg.Store)
	}
}

// buildPublishers returns one publisher per configured broker.
func buildPublishers(cfg *config.PublishConfig, b *broker.Broker, instance string) ([]publish.Publisher, error) {
	var pubs []publish.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		pubs = append(pubs, publish.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, instance))
		logging.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("Kafka snapshot publisher enabled")
	}
	if b != nil {
		np, err := publish.NewNATSPublisher(b.URL, cfg.NATSSubject, instance, logging.NewWatermillLogger("publish"))
		if err != nil {
			for _, p := range pubs {
				_ = p.Close()
			}
			return nil, err
		}
		pubs = append(pubs, np)
		logging.Info().Str("subject", cfg.NATSSubject).Msg("NATS snapshot publisher enabled")
	}
	return pubs, nil
}
