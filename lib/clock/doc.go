// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for everything in xyv that sleeps,
// ticks, or stamps a frame.
//
// The flusher, the serial queue drain, and the monitor's liveness check
// take a Clock rather than calling the time package. Production wiring
// passes Real(). Tests pass Fake(start), whose time moves only when the
// test calls Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go flusher.Run(ctx)
//	c.WaitForTimers(1)               // flusher has created its ticker
//	c.Advance(20 * time.Millisecond) // exactly one tick
//
// WaitForTimers closes the window between a goroutine creating a ticker
// and the test moving time past it.
package clock
