// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xyv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/xyv/lib/clock"
)

const (
	// DefaultTickInterval is how often the flusher wakes.
	DefaultTickInterval = 20 * time.Millisecond

	// DefaultHeartbeatInterval is the longest the host goes without a
	// frame while the link accepts writes.
	DefaultHeartbeatInterval = 400 * time.Millisecond
)

// State is what the flusher goroutine is doing.
type State int32

const (
	// StateIdle: waiting for the next tick.
	StateIdle State = iota
	// StateFlushing: deciding, encoding, or writing a frame.
	StateFlushing
)

func (s State) String() string {
	if s == StateFlushing {
		return "flushing"
	}
	return "idle"
}

// Stats counts flusher activity since creation.
type Stats struct {
	Ticks      uint64 `json:"ticks"`
	Skipped    uint64 `json:"skipped"`
	Sent       uint64 `json:"sent"`
	Deferred   uint64 `json:"deferred"`
	Heartbeats uint64 `json:"heartbeats"` // frames built with no new data
	BytesSent  uint64 `json:"bytes_sent"`
}

// Flusher moves pending telemetry from the stores to the transport,
// one frame per tick at most.
//
// Tick and Run must not be called concurrently with each other; the
// heartbeat bookkeeping belongs to a single goroutine. State and Stats
// may be called from anywhere.
type Flusher struct {
	store     *OutputStore
	buffer    *LogBuffer
	gate      gate
	clock     clock.Clock
	logger    *slog.Logger
	start     time.Time
	interval  time.Duration
	heartbeat time.Duration
	mark      HeartbeatMark
	key       string
	delimiter string

	lastFlush time.Time
	flushed   bool

	state atomic.Int32

	ticks, skipped, sent, deferred, heartbeats, bytesSent atomic.Uint64
}

// pending is what one tick took out of the stores.
type pending struct {
	values  map[string]json.RawMessage
	seqs    map[string]uint64
	console string
	fresh   bool // anything recorded or logged since the last commit
}

// Tick runs one flush decision at the current clock time. A non-nil
// error means the link is unusable or a frame can never fit; the
// caller should stop flushing.
func (f *Flusher) Tick() (Outcome, error) {
	f.state.Store(int32(StateFlushing))
	defer f.state.Store(int32(StateIdle))
	f.ticks.Add(1)

	now := f.clock.Now()
	snap, due := f.take(now)
	if !due {
		f.skipped.Add(1)
		return OutcomeSkipped, nil
	}
	if !snap.fresh {
		f.heartbeats.Add(1)
	}
	if snap.console != "" {
		// A value recorded under the console key is shadowed in this
		// frame, so it must outlive the commit.
		delete(snap.seqs, f.key)
	}

	msg, err := buildMessage(snap.values, snap.console, f.key, now.Sub(f.start).Seconds())
	if err != nil {
		return OutcomeDeferred, err
	}
	frame, err := EncodeFrame(msg, f.delimiter)
	if err != nil {
		return OutcomeDeferred, fmt.Errorf("encoding frame: %w", err)
	}

	outcome, err := f.gate.send(frame, len(msg.Data))
	if outcome == OutcomeSent {
		f.commit(snap)
		f.sent.Add(1)
		f.bytesSent.Add(uint64(len(frame)))
	} else {
		f.deferred.Add(1)
		f.logger.Debug("telemetry frame deferred", "size", len(frame), "keys", len(msg.Data))
	}
	if f.mark == MarkOnAttempt || (outcome == OutcomeSent && err == nil) {
		f.lastFlush = now
		f.flushed = true
	}
	return outcome, err
}

// take locks both stores and, if a frame is due, copies their contents.
func (f *Flusher) take(now time.Time) (pending, bool) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.buffer.mu.Lock()
	defer f.buffer.mu.Unlock()

	fresh := len(f.store.entries) > 0 || len(f.buffer.text) > 0
	heartbeat := !f.flushed || now.Sub(f.lastFlush) > f.heartbeat
	if !fresh && !heartbeat {
		return pending{}, false
	}
	values, seqs := f.store.snapshotLocked()
	return pending{
		values:  values,
		seqs:    seqs,
		console: string(f.buffer.text),
		fresh:   fresh,
	}, true
}

// commit removes what a written frame carried.
func (f *Flusher) commit(snap pending) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.buffer.mu.Lock()
	defer f.buffer.mu.Unlock()

	f.store.commitLocked(snap.seqs)
	f.buffer.trimLocked(len(snap.console))
}

// Run ticks immediately and then once per tick interval until ctx is
// cancelled or a tick fails. On cancellation it makes one last attempt
// to ship what is pending and returns nil.
func (f *Flusher) Run(ctx context.Context) error {
	ticker := f.clock.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		if _, err := f.Tick(); err != nil {
			f.logger.Error("telemetry flusher stopped", "error", err)
			return err
		}
		select {
		case <-ctx.Done():
			if _, err := f.Tick(); err != nil {
				f.logger.Warn("final telemetry flush failed", "error", err)
			}
			return nil
		case <-ticker.C:
		}
	}
}

// State reports whether a tick is in progress.
func (f *Flusher) State() State { return State(f.state.Load()) }

// Stats returns a copy of the counters.
func (f *Flusher) Stats() Stats {
	return Stats{
		Ticks:      f.ticks.Load(),
		Skipped:    f.skipped.Load(),
		Sent:       f.sent.Load(),
		Deferred:   f.deferred.Load(),
		Heartbeats: f.heartbeats.Load(),
		BytesSent:  f.bytesSent.Load(),
	}
}
