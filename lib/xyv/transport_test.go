// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xyv

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/xyv/lib/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeTransport records written frames. Capacity, failures, and a
// per-write hook are configurable between ticks. Every successful
// write is also delivered on written so goroutine-driven tests can
// wait for it.
type fakeTransport struct {
	mu           sync.Mutex
	available    int
	maxFrame     int
	frames       [][]byte
	availErr     error
	writeErr     error
	shortBy      int
	availQueries int
	onWrite      func()
	written      chan []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		available: DefaultMaxFrameSize,
		maxFrame:  DefaultMaxFrameSize,
		written:   make(chan []byte, 64),
	}
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.mu.Lock()
	hook := f.onWrite
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	n := len(p) - f.shortBy
	frame := bytes.Clone(p[:n])
	f.frames = append(f.frames, frame)
	select {
	case f.written <- frame:
	default:
	}
	return n, nil
}

func (f *fakeTransport) Available() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.availQueries++
	return f.available, f.availErr
}

func (f *fakeTransport) MaxFrameSize() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxFrame
}

func (f *fakeTransport) setAvailable(n int) {
	f.mu.Lock()
	f.available = n
	f.mu.Unlock()
}

func (f *fakeTransport) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeTransport) lastFrame(t *testing.T) Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		t.Fatal("no frame written")
	}
	return decodeFrame(t, f.frames[len(f.frames)-1])
}

func decodeFrame(t *testing.T, frame []byte) Message {
	t.Helper()
	if !bytes.HasSuffix(frame, []byte(DefaultDelimiter)) {
		t.Fatalf("frame %q does not end with the delimiter", frame)
	}
	var msg Message
	if err := json.Unmarshal(bytes.TrimSuffix(frame, []byte(DefaultDelimiter)), &msg); err != nil {
		t.Fatalf("frame %q is not JSON: %v", frame, err)
	}
	return msg
}

// newTestTelemetry builds an uninstalled, unstarted handle on a fake
// clock so tests can drive Tick by hand.
func newTestTelemetry(t *testing.T, transport Transport, adjust ...func(*Config)) (*Telemetry, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	config := Config{Transport: transport, Clock: fake}
	for _, f := range adjust {
		f(&config)
	}
	telemetry, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return telemetry, fake
}

func tick(t *testing.T, telemetry *Telemetry, want Outcome) {
	t.Helper()
	got, err := telemetry.Flusher().Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got != want {
		t.Fatalf("Tick() = %v, want %v", got, want)
	}
}

func rawString(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("%s is not a JSON string: %v", raw, err)
	}
	return s
}
