// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/xyv/lib/codec"
)

const (
	// Format identifies capture files.
	Format = "xyv-capture"
	// Version is the current file layout.
	Version = 1

	maxHeaderSize = 64 << 10
)

// ErrDigestMismatch means a record's frame does not match its digest.
var ErrDigestMismatch = errors.New("capture: frame digest mismatch")

// Header describes a capture file.
type Header struct {
	Format      string      `cbor:"format"`
	Version     int         `cbor:"version"`
	Session     string      `cbor:"session"`
	StartedAt   int64       `cbor:"started_at"` // Unix nanoseconds
	Source      string      `cbor:"source,omitempty"`
	Compression Compression `cbor:"compression"`
}

// Started is StartedAt as a time.
func (h Header) Started() time.Time { return time.Unix(0, h.StartedAt).UTC() }

// Record is one received frame.
type Record struct {
	ReceivedAt int64  `cbor:"received_at"` // Unix nanoseconds
	Frame      []byte `cbor:"frame"`
	Digest     []byte `cbor:"digest"`
}

// Received is ReceivedAt as a time.
func (r Record) Received() time.Time { return time.Unix(0, r.ReceivedAt).UTC() }

// WriterOptions configures NewWriter.
type WriterOptions struct {
	Compression Compression
	// Session identifies the capture. A random UUID when zero.
	Session uuid.UUID
	// Source is free text naming where frames came from, such as a
	// device path.
	Source    string
	StartedAt time.Time
}

// Writer appends records to a capture file.
type Writer struct {
	header  Header
	body    bodyWriter
	encoder *codec.Encoder
	records int
}

// NewWriter writes the header to w and returns a Writer for the body.
// Closing the Writer does not close w.
func NewWriter(w io.Writer, options WriterOptions) (*Writer, error) {
	compression, err := ParseCompression(string(options.Compression))
	if err != nil {
		return nil, err
	}
	session := options.Session
	if session == uuid.Nil {
		session = uuid.New()
	}
	header := Header{
		Format:      Format,
		Version:     Version,
		Session:     session.String(),
		StartedAt:   options.StartedAt.UnixNano(),
		Source:      options.Source,
		Compression: compression,
	}

	encoded, err := codec.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("encoding capture header: %w", err)
	}
	prefix := binary.BigEndian.AppendUint32(nil, uint32(len(encoded)))
	if _, err := w.Write(append(prefix, encoded...)); err != nil {
		return nil, fmt.Errorf("writing capture header: %w", err)
	}

	body, err := newBodyWriter(w, compression)
	if err != nil {
		return nil, err
	}
	return &Writer{header: header, body: body, encoder: codec.NewEncoder(body)}, nil
}

// Header returns the header written to the file.
func (w *Writer) Header() Header { return w.header }

// Records is the number of records appended.
func (w *Writer) Records() int { return w.records }

// Append records one frame. frame is copied into the encoder; the
// caller may reuse it.
func (w *Writer) Append(receivedAt time.Time, frame []byte) error {
	record := Record{
		ReceivedAt: receivedAt.UnixNano(),
		Frame:      frame,
		Digest:     Digest(frame),
	}
	if err := w.encoder.Encode(record); err != nil {
		return fmt.Errorf("appending capture record %d: %w", w.records, err)
	}
	w.records++
	return nil
}

// Flush pushes buffered compressed data to the file.
func (w *Writer) Flush() error { return w.body.Flush() }

// Close finishes the compressed stream.
func (w *Writer) Close() error { return w.body.Close() }

// Reader iterates over the records of a capture file.
type Reader struct {
	header  Header
	decoder *codec.Decoder
	release func()
	index   int
}

// NewReader reads and validates the header from r.
func NewReader(r io.Reader) (*Reader, error) {
	buffered := bufio.NewReader(r)

	var prefix [4]byte
	if _, err := io.ReadFull(buffered, prefix[:]); err != nil {
		return nil, fmt.Errorf("reading capture header length: %w", err)
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size == 0 || size > maxHeaderSize {
		return nil, fmt.Errorf("capture header length %d out of range", size)
	}
	encoded := make([]byte, size)
	if _, err := io.ReadFull(buffered, encoded); err != nil {
		return nil, fmt.Errorf("reading capture header: %w", err)
	}

	var header Header
	if err := codec.Unmarshal(encoded, &header); err != nil {
		return nil, fmt.Errorf("decoding capture header: %w", err)
	}
	if header.Format != Format {
		return nil, fmt.Errorf("not a capture file (format %q)", header.Format)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("unsupported capture version %d (want %d)", header.Version, Version)
	}
	if _, err := uuid.Parse(header.Session); err != nil {
		return nil, fmt.Errorf("capture session %q: %w", header.Session, err)
	}

	body, release, err := newBodyReader(buffered, header.Compression)
	if err != nil {
		return nil, err
	}
	return &Reader{header: header, decoder: codec.NewDecoder(body), release: release}, nil
}

// Header returns the file header.
func (r *Reader) Header() Header { return r.header }

// Next returns the next record, io.EOF after the last one, or an error
// wrapping ErrDigestMismatch for a corrupt frame. Reading may continue
// after a digest mismatch.
func (r *Reader) Next() (Record, error) {
	var record Record
	if err := r.decoder.Decode(&record); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("decoding capture record %d: %w", r.index, err)
	}
	index := r.index
	r.index++
	if !bytes.Equal(record.Digest, Digest(record.Frame)) {
		return record, fmt.Errorf("capture record %d: %w", index, ErrDigestMismatch)
	}
	return record, nil
}

// Close releases decompressor resources. It does not close the
// underlying reader.
func (r *Reader) Close() { r.release() }
