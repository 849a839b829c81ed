// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xyv

import "sync"

// LogBuffer accumulates console lines between flushes. Appends come
// from any goroutine; only the flusher reads and trims.
type LogBuffer struct {
	mu   sync.Mutex
	text []byte
}

// Append adds one formatted line. The caller supplies the trailing
// newline.
func (b *LogBuffer) Append(line []byte) {
	b.mu.Lock()
	b.text = append(b.text, line...)
	b.mu.Unlock()
}

// Len is the number of buffered bytes.
func (b *LogBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.text)
}

// String returns a copy of the buffered text.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.text)
}

// trimLocked drops the first n bytes, the part a written frame carried.
// Bytes appended after the snapshot stay.
func (b *LogBuffer) trimLocked(n int) {
	if n >= len(b.text) {
		b.text = b.text[:0]
		return
	}
	rest := copy(b.text, b.text[n:])
	b.text = b.text[:rest]
}
