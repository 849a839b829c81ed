// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package capture records received frames to a file for later replay.
//
// A capture file is a header followed by a body:
//
//	[4-byte big-endian length][CBOR Header]
//	[body: CBOR sequence of Record, compressed as Header.Compression says]
//
// The header is never compressed, so a reader can learn the compression
// before touching the body. Each Record keeps the frame bytes exactly as
// they arrived (delimiter stripped) with the host receive time and a
// BLAKE3 keyed digest of the frame. The digest catches corruption in
// files that were copied around or truncated mid-write; it is not a
// signature.
//
// Records are appended as frames arrive. Call Writer.Flush to make
// everything appended so far readable (lz4 and zstd hold data in their
// block buffers until then) and Writer.Close at the end.
package capture
