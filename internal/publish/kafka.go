// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package publish

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/tomtom215/skytrail/internal/flights"
)

// SummaryKey is the message key of the per-snapshot summary record.
const SummaryKey = "_summary"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per flight, keyed by icao24, followed
// by a summary message. Keys hash to partitions so one aircraft's history
// stays ordered.
type KafkaPublisher struct {
	w        messageWriter
	instance string
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic, instance string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1000,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Zstd,
	}
	return &KafkaPublisher{w: w, instance: instance}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, snap *flights.Snapshot) error {
	headers := []kafka.Header{
		{Key: InstanceHeader, Value: []byte(p.instance)},
		{Key: "snapshot_time", Value: []byte(strconv.FormatInt(snap.Time, 10))},
	}

	msgs := make([]kafka.Message, 0, len(snap.Flights)+1)
	for i := range snap.Flights {
		b, err := json.Marshal(&snap.Flights[i])
		if err != nil {
			return fmt.Errorf("encode flight %s: %w", snap.Flights[i].ICAO24, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(snap.Flights[i].ICAO24), Value: b, Headers: headers})
	}
	summary, err := json.Marshal(snap.Summary())
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	msgs = append(msgs, kafka.Message{Key: []byte(SummaryKey), Value: summary, Headers: headers})

	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d kafka messages: %w", len(msgs), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
