// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xyv

import (
	"bytes"
	"encoding/json"
	"io"
)

// DefaultDelimiter terminates every frame.
const DefaultDelimiter = "\n"

// EncodeFrame renders msg as compact JSON followed by delimiter. HTML
// characters are not escaped; the host sees console text verbatim.
func EncodeFrame(msg Message, delimiter string) ([]byte, error) {
	body, err := encodeCompact(msg)
	if err != nil {
		return nil, err
	}
	return append(body, delimiter...), nil
}

func encodeCompact(v any) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	// Encode terminates with a newline.
	return bytes.TrimSuffix(buffer.Bytes(), []byte{'\n'}), nil
}

// writeFrame writes the whole frame or fails. A short write without an
// error from the transport is reported as io.ErrShortWrite.
func writeFrame(transport Transport, frame []byte) error {
	n, err := transport.Write(frame)
	if err == nil && n < len(frame) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &WriteError{Op: "write", Written: n, Size: len(frame), Err: err}
	}
	return nil
}
