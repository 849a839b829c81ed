// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package serialport

import (
	"errors"
	"fmt"
)

// Port is unavailable on this platform; use a Queue.
type Port struct{}

// Open always fails outside Linux.
func Open(path string, options Options) (*Port, error) {
	return nil, fmt.Errorf("opening %s: %w", path, errors.ErrUnsupported)
}

func (*Port) Write([]byte) (int, error) { return 0, errors.ErrUnsupported }
func (*Port) Read([]byte) (int, error)  { return 0, errors.ErrUnsupported }
func (*Port) Available() (int, error)   { return 0, errors.ErrUnsupported }
func (*Port) MaxFrameSize() int         { return 0 }
func (*Port) Close() error              { return nil }
