// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serialport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bureau-foundation/xyv/lib/clock"
)

// DefaultDrainInterval is how often a Queue moves bytes to its writer.
const DefaultDrainInterval = 10 * time.Millisecond

var (
	// ErrQueueFull is returned by Write when p does not fit. Nothing
	// is written.
	ErrQueueFull = errors.New("serialport: outbound queue full")
	// ErrQueueClosed is returned after Run has returned.
	ErrQueueClosed = errors.New("serialport: outbound queue closed")
)

// QueueOptions configures NewQueue.
type QueueOptions struct {
	// Capacity defaults to DefaultBufferSize.
	Capacity int
	// BytesPerSecond is the drain rate. Defaults to the rate of a
	// DefaultBaud UART.
	BytesPerSecond int
	// DrainInterval defaults to DefaultDrainInterval.
	DrainInterval time.Duration
	// Clock defaults to clock.Real().
	Clock clock.Clock
}

// Queue is a bounded outbound buffer that trickles into a writer.
type Queue struct {
	out      io.Writer
	clock    clock.Clock
	interval time.Duration
	budget   int // bytes per drain

	mu       sync.Mutex
	pending  []byte
	capacity int
	err      error
}

// NewQueue returns a Queue draining into out once Run is called.
func NewQueue(out io.Writer, options QueueOptions) *Queue {
	if options.Capacity <= 0 {
		options.Capacity = DefaultBufferSize
	}
	if options.BytesPerSecond <= 0 {
		options.BytesPerSecond = BytesPerSecond(DefaultBaud)
	}
	if options.DrainInterval <= 0 {
		options.DrainInterval = DefaultDrainInterval
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	budget := int(int64(options.BytesPerSecond) * int64(options.DrainInterval) / int64(time.Second))
	return &Queue{
		out:      out,
		clock:    options.Clock,
		interval: options.DrainInterval,
		budget:   max(budget, 1),
		pending:  make([]byte, 0, options.Capacity),
		capacity: options.Capacity,
	}
}

// Write queues all of p or, if it does not fit, none of it.
func (q *Queue) Write(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return 0, q.err
	}
	if len(p) > q.capacity-len(q.pending) {
		return 0, fmt.Errorf("%w: %d bytes queued, %d more requested, capacity %d",
			ErrQueueFull, len(q.pending), len(p), q.capacity)
	}
	q.pending = append(q.pending, p...)
	return len(p), nil
}

// Available is the free space in the queue.
func (q *Queue) Available() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return 0, q.err
	}
	return q.capacity - len(q.pending), nil
}

// MaxFrameSize is the queue capacity.
func (q *Queue) MaxFrameSize() int { return q.capacity }

// Buffered is the number of bytes waiting to drain.
func (q *Queue) Buffered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Run drains the queue until ctx is cancelled, then writes whatever is
// left and returns nil. A writer error stops the queue; later writes
// fail with that error.
func (q *Queue) Run(ctx context.Context) error {
	ticker := q.clock.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			err := q.drain(-1)
			q.stop(ErrQueueClosed)
			return err
		case <-ticker.C:
			if err := q.drain(q.budget); err != nil {
				return err
			}
		}
	}
}

// drain writes up to limit queued bytes, or all of them when limit is
// negative. The writer is called without the lock held.
func (q *Queue) drain(limit int) error {
	q.mu.Lock()
	n := len(q.pending)
	if limit >= 0 {
		n = min(n, limit)
	}
	chunk := append([]byte(nil), q.pending[:n]...)
	q.mu.Unlock()
	if n == 0 {
		return nil
	}

	if _, err := q.out.Write(chunk); err != nil {
		err = fmt.Errorf("serialport: draining queue: %w", err)
		q.stop(err)
		return err
	}

	q.mu.Lock()
	rest := copy(q.pending, q.pending[n:])
	q.pending = q.pending[:rest]
	q.mu.Unlock()
	return nil
}

func (q *Queue) stop(err error) {
	q.mu.Lock()
	if q.err == nil {
		q.err = err
	}
	q.mu.Unlock()
}
