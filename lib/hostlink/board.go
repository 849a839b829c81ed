// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostlink

import (
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"
)

// Value is the latest known value for one key.
type Value struct {
	Key string
	Raw json.RawMessage
	// NowSec is the device time of the frame that carried it.
	NowSec float64
	// UpdatedAt is when the host received that frame.
	UpdatedAt time.Time
}

// Snapshot is a consistent copy of a Board.
type Snapshot struct {
	Values     []Value // sorted by key
	Console    []string
	Frames     uint64
	Heartbeats uint64
	Restarts   uint64
	Malformed  uint64
	NowSec     float64
	LastFrame  time.Time
}

// Board merges frames from one device. It is safe for concurrent use.
type Board struct {
	mu           sync.Mutex
	consoleKey   string
	staleAfter   time.Duration
	consoleLines int

	values     map[string]Value
	console    []string
	frames     uint64
	heartbeats uint64
	restarts   uint64
	malformed  uint64
	nowSec     float64
	lastFrame  time.Time
}

// NewBoard returns an empty board. staleAfter is how long the device
// may stay silent before Stale reports it; consoleLines bounds the
// console tail.
func NewBoard(consoleKey string, staleAfter time.Duration, consoleLines int) *Board {
	if consoleKey == "" {
		consoleKey = DefaultConsoleKey
	}
	return &Board{
		consoleKey:   consoleKey,
		staleAfter:   staleAfter,
		consoleLines: consoleLines,
		values:       make(map[string]Value),
	}
}

// Apply merges a frame received at receivedAt. A now_sec lower than
// the previous frame's means the device restarted; values from before
// the restart are kept until overwritten.
func (b *Board) Apply(receivedAt time.Time, frame *Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frames > 0 && frame.NowSec < b.nowSec {
		b.restarts++
	}
	b.frames++
	if frame.Heartbeat() {
		b.heartbeats++
	}
	b.nowSec = frame.NowSec
	b.lastFrame = receivedAt

	for key, raw := range frame.Data {
		if key == b.consoleKey {
			continue
		}
		b.values[key] = Value{Key: key, Raw: raw, NowSec: frame.NowSec, UpdatedAt: receivedAt}
	}
	if frame.Console != "" {
		b.appendConsole(frame.Console)
	}
}

func (b *Board) appendConsole(text string) {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	b.console = append(b.console, lines...)
	if b.consoleLines > 0 && len(b.console) > b.consoleLines {
		b.console = slices.Clone(b.console[len(b.console)-b.consoleLines:])
	}
}

// Malformed counts a frame that failed to decode.
func (b *Board) Malformed() {
	b.mu.Lock()
	b.malformed++
	b.mu.Unlock()
}

// Stale reports whether no frame has arrived within the stale interval
// before now. A board that never received a frame is stale.
func (b *Board) Stale(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames == 0 || now.Sub(b.lastFrame) > b.staleAfter
}

// Get returns the latest value for key.
func (b *Board) Get(key string) (Value, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	value, ok := b.values[key]
	return value, ok
}

// Snapshot copies the board.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	values := make([]Value, 0, len(b.values))
	for _, value := range b.values {
		values = append(values, value)
	}
	slices.SortFunc(values, func(x, y Value) int { return strings.Compare(x.Key, y.Key) })

	return Snapshot{
		Values:     values,
		Console:    slices.Clone(b.console),
		Frames:     b.frames,
		Heartbeats: b.heartbeats,
		Restarts:   b.restarts,
		Malformed:  b.malformed,
		NowSec:     b.nowSec,
		LastFrame:  b.lastFrame,
	}
}
