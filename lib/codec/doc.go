// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the CBOR configuration for xyv's on-disk formats.
//
// Frames on the serial link are JSON, because the host splits the byte
// stream on a delimiter and binary CBOR could contain it. Capture files
// written by the monitor are CBOR: they are read only by xyv tools and
// CBOR keeps each recorded frame as an opaque byte string.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2), so the same
// value always produces the same bytes. Decoding ignores unknown fields,
// which lets newer writers add fields without breaking older readers.
//
//	encoder := codec.NewEncoder(file)
//	err := encoder.Encode(record)
//
// Struct fields carry `cbor` tags with snake_case names.
package codec
