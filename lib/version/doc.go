// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the xyv binaries.
//
// [GitCommit], [GitDirty], and [BuildTime] are injected at link time:
//
//	go build -ldflags "-X github.com/bureau-foundation/xyv/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Unset values read "unknown", which is what tests and go run see.
package version
