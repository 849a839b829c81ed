// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostlink is the host end of the xyv serial link.
//
// [Reader] splits the incoming byte stream on the frame delimiter and
// hands each frame to a [Decoder], which checks the frame shape
// ({"data":{...},"now_sec":N}) and pulls out the console text. A
// [Board] folds decoded frames into the latest known value per key,
// a tail of console lines, and liveness: a board that has not seen a
// frame (heartbeats included) for its stale interval is reported as
// stale.
//
// Devices print other things on the same port, boot banners in
// particular, so a frame that does not decode is reported as a
// *FrameError and reading continues.
package hostlink
