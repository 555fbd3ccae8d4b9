// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package flights

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// natsSnapshotKey is the key-value entry holding the global snapshot.
const natsSnapshotKey = "global"

// NATSStore keeps the snapshot in a JetStream key-value bucket so several
// instances share one snapshot and one upstream quota.
type NATSStore struct {
	kv jetstream.KeyValue
}

// NewNATSStore binds to bucket, creating it with a history of one when it
// does not exist.
func NewNATSStore(ctx context.Context, nc *nats.Conn, bucket string) (*NATSStore, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Current global flight snapshot",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("bind snapshot bucket %q: %w", bucket, err)
	}
	return &NATSStore{kv: kv}, nil
}

func (s *NATSStore) Load(ctx context.Context) (*Snapshot, error) {
	entry, err := s.kv.Get(ctx, natsSnapshotKey)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	return decodeSnapshot(entry.Value())
}

func (s *NATSStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if _, err := s.kv.Put(ctx, natsSnapshotKey, data); err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

func (s *NATSStore) Clear(ctx context.Context) error {
	err := s.kv.Delete(ctx, natsSnapshotKey)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}
