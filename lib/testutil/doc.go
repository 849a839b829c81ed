// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by xyv tests.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern used when a test waits on a goroutine driven by a fake clock.
// They are the only place tests consult the wall clock, and only as a
// hang guard: a correct test never reaches the timeout.
package testutil
