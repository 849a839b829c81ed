// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the exit path shared by the xyv binaries. Each
// main() calls run() and hands a non-nil error to [Fatal]; nothing else
// writes raw text to stderr.
package process
