// Skytrail - Live Flight Map Data Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/skytrail

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordUpstreamRequest(t *testing.T) {
	before := testutil.ToFloat64(UpstreamRequests.WithLabelValues("states", "anonymous", "rate_limited"))
	RecordUpstreamRequest("states", "anonymous", "rate_limited", 120*time.Millisecond)
	after := testutil.ToFloat64(UpstreamRequests.WithLabelValues("states", "anonymous", "rate_limited"))

	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestRecordTokenExchange(t *testing.T) {
	okBefore := testutil.ToFloat64(TokenExchanges.WithLabelValues("success"))
	failBefore := testutil.ToFloat64(TokenExchanges.WithLabelValues("failure"))

	RecordTokenExchange(true)
	RecordTokenExchange(false)
	RecordTokenExchange(false)

	if got := testutil.ToFloat64(TokenExchanges.WithLabelValues("success")) - okBefore; got != 1 {
		t.Errorf("expected 1 successful exchange, got %v", got)
	}
	if got := testutil.ToFloat64(TokenExchanges.WithLabelValues("failure")) - failBefore; got != 2 {
		t.Errorf("expected 2 failed exchanges, got %v", got)
	}
}

func TestRecordSnapshot(t *testing.T) {
	captured := time.Unix(1700000000, 0)
	RecordSnapshot(4200, captured)

	if got := testutil.ToFloat64(SnapshotFlights); got != 4200 {
		t.Errorf("expected 4200 flights, got %v", got)
	}
	if got := testutil.ToFloat64(SnapshotCaptured); got != 1700000000 {
		t.Errorf("expected captured timestamp 1700000000, got %v", got)
	}
}

func TestRecordRefresh(t *testing.T) {
	before := testutil.ToFloat64(RefreshErrors.WithLabelValues("timeout"))
	RecordRefresh(2*time.Second, errors.New("deadline"), "timeout")
	if got := testutil.ToFloat64(RefreshErrors.WithLabelValues("timeout")) - before; got != 1 {
		t.Errorf("expected one refresh error, got %v", got)
	}

	RecordRefresh(time.Second, nil, "")
	if testutil.ToFloat64(RefreshLastSuccess) == 0 {
		t.Error("expected last success timestamp to be set")
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("expected %v active requests, got %v", before+1, got)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("expected %v active requests, got %v", before, got)
	}
}

func TestRecordPublish(t *testing.T) {
	before := testutil.ToFloat64(PublishedSnapshots.WithLabelValues("kafka", "failure"))
	RecordPublish("kafka", errors.New("broker down"))
	if got := testutil.ToFloat64(PublishedSnapshots.WithLabelValues("kafka", "failure")) - before; got != 1 {
		t.Errorf("expected one failed publish, got %v", got)
	}
}
