// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostlink

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Reader yields frames from a byte stream.
type Reader struct {
	scanner   *bufio.Scanner
	decoder   *Decoder
	delimiter []byte
	maxFrame  int
	raw       []byte
}

// NewReader reads frames separated by delimiter ("\n" when empty) from
// r. Frames longer than maxFrame bytes end reading with an error; a
// non-positive maxFrame means 2048.
func NewReader(r io.Reader, decoder *Decoder, delimiter string, maxFrame int) *Reader {
	if delimiter == "" {
		delimiter = "\n"
	}
	if maxFrame <= 0 {
		maxFrame = 2048
	}
	reader := &Reader{
		scanner:   bufio.NewScanner(r),
		decoder:   decoder,
		delimiter: []byte(delimiter),
		maxFrame:  maxFrame,
	}
	reader.scanner.Buffer(make([]byte, 0, 4096), maxFrame+len(delimiter))
	reader.scanner.Split(reader.split)
	return reader
}

func (r *Reader) split(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.Index(data, r.delimiter); i >= 0 {
		return i + len(r.delimiter), data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Next returns the next frame. Blank lines are skipped. A frame that
// does not decode is returned as a *FrameError; the caller may keep
// calling Next. io.EOF marks the end of the stream.
func (r *Reader) Next() (*Frame, error) {
	for r.scanner.Scan() {
		raw := bytes.TrimRight(r.scanner.Bytes(), "\r")
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		r.raw = append(r.raw[:0], raw...)
		return r.decoder.Decode(raw)
	}
	if err := r.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("frame exceeds %d bytes: %w", r.maxFrame, err)
		}
		return nil, err
	}
	return nil, io.EOF
}

// Raw returns the bytes of the frame most recently returned by Next,
// without the delimiter. It is overwritten by the next call.
func (r *Reader) Raw() []byte { return r.raw }
