// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// xyv-demo is a device-side example. It runs a simulated arm control
// loop that records its output voltage and logs each setpoint, and
// ships both as telemetry frames.
//
// With --port the frames go to a serial device. Without it they go to
// stdout through an in-memory queue that drains at the configured
// baud rate, so piping into xyv-monitor behaves like a real link:
//
//	xyv-demo --rate 5ms | xyv-monitor --tui
//
// The process exits when interrupted, after --duration if set, or when
// the link fails.
package main
