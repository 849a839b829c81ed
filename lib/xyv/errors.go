// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xyv

import (
	"errors"
	"fmt"
)

// ErrAlreadyInstalled is returned by Install when another Telemetry is
// already the process-wide slog default.
var ErrAlreadyInstalled = errors.New("xyv: telemetry logger already installed")

// ErrAlreadyStarted is returned when a Telemetry's flusher is started
// a second time.
var ErrAlreadyStarted = errors.New("xyv: flusher already started")

// SerializationError reports a value that could not be encoded as JSON.
// The store is left unchanged.
type SerializationError struct {
	Key  string
	Type string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("recording %s: cannot serialize %s: %v", e.Key, e.Type, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// FrameTooLargeError reports a frame that exceeds the transport's
// maximum frame size. Too much telemetry was recorded for one tick;
// retrying cannot help.
type FrameTooLargeError struct {
	Size int
	Max  int
	Keys int
}

func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("frame of %d bytes (%d keys) exceeds transport maximum of %d bytes", e.Size, e.Keys, e.Max)
}

// WriteError reports a failed transport operation. Op is "write" or
// "available".
type WriteError struct {
	Op      string
	Written int
	Size    int
	Err     error
}

func (e *WriteError) Error() string {
	if e.Op == "write" {
		return fmt.Sprintf("transport write (%d of %d bytes): %v", e.Written, e.Size, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
