// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"time"

	"github.com/bureau-foundation/xyv/lib/capture"
	"github.com/bureau-foundation/xyv/lib/clock"
	"github.com/bureau-foundation/xyv/lib/hostlink"
)

// arrival is one frame as received. Frame is nil when the bytes did
// not decode, and Err then says why.
type arrival struct {
	At    time.Time
	Raw   []byte
	Frame *hostlink.Frame
	Err   error
}

type source interface {
	// Next returns the next arrival, or io.EOF at the end of input.
	Next() (arrival, error)
}

// streamSource reads a live byte stream and stamps each frame with the
// time it was read.
type streamSource struct {
	reader *hostlink.Reader
	clock  clock.Clock
}

func (s *streamSource) Next() (arrival, error) {
	frame, err := s.reader.Next()
	var frameErr *hostlink.FrameError
	if err != nil && !errors.As(err, &frameErr) {
		return arrival{}, err
	}
	return arrival{
		At:    s.clock.Now(),
		Raw:   append([]byte(nil), s.reader.Raw()...),
		Frame: frame,
		Err:   err,
	}, nil
}

// replaySource reads a capture file. With realtime set it sleeps
// between records for as long as the gap between their receive times.
type replaySource struct {
	reader   *capture.Reader
	decoder  *hostlink.Decoder
	clock    clock.Clock
	realtime bool
	previous time.Time
}

func (s *replaySource) Next() (arrival, error) {
	record, err := s.reader.Next()
	if err != nil {
		return arrival{}, err
	}
	at := record.Received()
	if s.realtime && !s.previous.IsZero() {
		if gap := at.Sub(s.previous); gap > 0 {
			s.clock.Sleep(gap)
		}
	}
	s.previous = at

	frame, err := s.decoder.Decode(record.Frame)
	return arrival{At: at, Raw: record.Frame, Frame: frame, Err: err}, nil
}
