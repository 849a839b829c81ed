// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xyv

// DefaultMaxFrameSize matches the outbound buffer of the reference
// serial link.
const DefaultMaxFrameSize = 2048

// Transport is the outbound byte channel to the host.
//
// Write must write all of p or return an error. Available reports how
// many bytes can be written right now without blocking or overrunning
// the link's buffer. MaxFrameSize is the largest frame the link can
// ever accept; it does not change over the transport's lifetime.
//
// Implementations may log through the telemetry logger or record
// values; the flusher holds no locks while calling them.
type Transport interface {
	Write(p []byte) (int, error)
	Available() (int, error)
	MaxFrameSize() int
}
