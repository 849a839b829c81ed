// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serialport

import (
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/xyv/lib/clock"
	"github.com/bureau-foundation/xyv/lib/xyv"
)

var (
	_ xyv.Transport = (*Queue)(nil)
	_ xyv.Transport = (*Port)(nil)
)

func TestQueueBackpressureDefersFrames(t *testing.T) {
	t.Parallel()

	out := newSink()
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	queue := NewQueue(out, QueueOptions{Capacity: 64, BytesPerSecond: 1000, Clock: fake})
	telemetry, err := xyv.New(xyv.Config{Transport: queue, Clock: fake})
	if err != nil {
		t.Fatal(err)
	}
	flusher := telemetry.Flusher()

	telemetry.Record("/Arm/OutputVolts", 3.5)
	if outcome, err := flusher.Tick(); err != nil || outcome != xyv.OutcomeSent {
		t.Fatalf("first Tick = %v, %v", outcome, err)
	}

	// The first frame still occupies most of the queue.
	telemetry.Record("/Arm/OutputVolts", 4)
	if outcome, err := flusher.Tick(); err != nil || outcome != xyv.OutcomeDeferred {
		t.Fatalf("second Tick = %v, %v, want deferred", outcome, err)
	}

	if err := queue.drain(-1); err != nil {
		t.Fatal(err)
	}
	if outcome, err := flusher.Tick(); err != nil || outcome != xyv.OutcomeSent {
		t.Fatalf("third Tick = %v, %v", outcome, err)
	}
	if err := queue.drain(-1); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], `"/Arm/OutputVolts":4`) {
		t.Errorf("drained frames = %q", lines)
	}
}
