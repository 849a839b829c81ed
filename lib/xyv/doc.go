// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package xyv aggregates telemetry and log output on a device and ships
// it to a host over a narrow serial link.
//
// Application goroutines write into two stores. Log records arrive
// through an slog.Handler ([Sink]) and accumulate as text in a
// [LogBuffer]. Named values arrive through [Telemetry.Record] and
// overwrite one another per key in an [OutputStore]. A single flusher
// goroutine wakes every tick, decides whether anything is worth sending
// (new data, or a heartbeat because the host has heard nothing for a
// while), and writes one frame:
//
//	{"data":{"/Arm/OutputVolts":3.5,"/Console":"INFO - ready\n"},"now_sec":1.24}
//
// followed by a delimiter (newline by default).
//
// # Delivery
//
// With [PolicyCapacityChecked] the flusher asks the [Transport] how much
// outbound space it has before writing. A frame that does not fit is
// deferred: both stores keep everything, and the next tick sends a
// superset. Only the exact values and log bytes that went into a
// written frame are removed afterwards, so anything recorded while the
// write was in flight survives to the next frame.
//
// A frame larger than the transport's maximum frame size can never be
// sent. That is a usage error (too much telemetry per tick) and stops
// the flusher with a [*FrameTooLargeError]. Write failures, including
// short writes, stop it with a [*WriteError].
//
// # Locking
//
// The output store lock is always taken before the log buffer lock.
// Neither lock is held while encoding JSON, calling a logger, or
// touching the transport, so a Record or log call from any goroutine
// (including one triggered by a transport implementation) cannot
// deadlock against the flusher.
//
// # Wiring
//
//	tel, err := xyv.Init(ctx, xyv.Config{Transport: port})
//	if err != nil {
//		return err
//	}
//	slog.Info("ready")
//	tel.Record("/Arm/OutputVolts", 3.5)
package xyv
