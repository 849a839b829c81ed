// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// xyv-monitor reads telemetry frames from a serial device, a file, or
// stdin and shows what the device is reporting.
//
// Output modes:
//
//   - default: one text line per changed value and every console line
//   - --json: the frames themselves, one per line, for piping into jq
//   - --tui: a live dashboard of latest values, link liveness, and the
//     console tail
//
// --record writes every frame received, malformed ones included, to a
// capture file. --replay reads a capture file back through the same
// pipeline instead of a live link.
package main
