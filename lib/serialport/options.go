// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package serialport

const (
	DefaultBaud       = 115200
	DefaultBufferSize = 2048
)

// Options configures Open.
type Options struct {
	// Baud defaults to DefaultBaud.
	Baud int
	// BufferSize is the nominal outbound buffer, and so the largest
	// frame the port accepts. Defaults to DefaultBufferSize.
	BufferSize int
}

func (o *Options) setDefaults() {
	if o.Baud == 0 {
		o.Baud = DefaultBaud
	}
	if o.BufferSize == 0 {
		o.BufferSize = DefaultBufferSize
	}
}

// BytesPerSecond is the payload rate of a UART at baud with 8N1
// framing: ten bit times per byte.
func BytesPerSecond(baud int) int { return baud / 10 }
