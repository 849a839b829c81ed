// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression names the body compression. The names are stored in the
// header and must not change.
type Compression string

const (
	CompressionNone Compression = "none"
	// CompressionLZ4 is the lz4 frame format: cheap enough to run
	// alongside a live dashboard.
	CompressionLZ4 Compression = "lz4"
	// CompressionZstd compresses JSON frames several times better than
	// lz4 at higher CPU cost.
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a compression name.
func ParseCompression(name string) (Compression, error) {
	switch c := Compression(name); c {
	case CompressionNone, CompressionLZ4, CompressionZstd:
		return c, nil
	case "":
		return CompressionNone, nil
	}
	return "", fmt.Errorf("unknown capture compression %q (want none, lz4, or zstd)", name)
}

// bodyWriter is a compressor over the file.
type bodyWriter interface {
	io.Writer
	Flush() error
	Close() error
}

type plainWriter struct{ io.Writer }

func (plainWriter) Flush() error { return nil }
func (plainWriter) Close() error { return nil }

func newBodyWriter(w io.Writer, compression Compression) (bodyWriter, error) {
	switch compression {
	case CompressionNone:
		return plainWriter{w}, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	case CompressionZstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return encoder, nil
	}
	return nil, fmt.Errorf("unsupported capture compression %q", compression)
}

// newBodyReader returns the decompressed body and a release function.
func newBodyReader(r io.Reader, compression Compression) (io.Reader, func(), error) {
	switch compression {
	case CompressionNone:
		return r, func() {}, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() {}, nil
	case CompressionZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd reader: %w", err)
		}
		return decoder, decoder.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported capture compression %q", compression)
}
