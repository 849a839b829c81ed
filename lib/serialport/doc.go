// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package serialport provides xyv transports.
//
// [Port] is a serial device opened in raw mode. Its capacity query asks
// the kernel how many bytes are still waiting in the driver's output
// queue (TIOCOUTQ) and reports the rest of a nominal buffer as free, so
// the flusher defers frames instead of blocking in write while the UART
// drains.
//
// [Queue] is a fixed-size outbound buffer drained into any io.Writer at
// a fixed byte rate. It stands in for a UART FIFO when frames go to
// stdout or a pipe, and gives tests a transport whose capacity changes
// as a fake clock advances.
package serialport
