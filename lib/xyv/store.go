// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xyv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
)

// OutputStore holds the latest value recorded under each key until a
// frame carrying it is written.
type OutputStore struct {
	mu      sync.Mutex
	entries map[string]entry
	seq     uint64
}

type entry struct {
	value json.RawMessage
	// seq is the store-wide write counter at the time of the write.
	// The flusher removes a key only if seq still matches its snapshot.
	seq uint64
}

// NewOutputStore returns an empty store.
func NewOutputStore() *OutputStore {
	return &OutputStore{entries: make(map[string]entry)}
}

// Record serializes value and stores it under key, replacing any value
// not yet sent. On a serialization failure the store is unchanged and
// the error is a *SerializationError.
func (s *OutputStore) Record(key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return &SerializationError{Key: key, Type: fmt.Sprintf("%T", value), Err: err}
	}
	s.put(key, encoded)
	return nil
}

// Put stores an already-encoded value in compact form. Input that is
// not a single JSON value is rejected with a *SerializationError and
// the store is unchanged.
func (s *OutputStore) Put(key string, value json.RawMessage) error {
	var compact bytes.Buffer
	if err := json.Compact(&compact, value); err != nil {
		return &SerializationError{Key: key, Type: fmt.Sprintf("%T", value), Err: err}
	}
	s.put(key, compact.Bytes())
	return nil
}

func (s *OutputStore) put(key string, value json.RawMessage) {
	s.mu.Lock()
	s.seq++
	s.entries[key] = entry{value: value, seq: s.seq}
	s.mu.Unlock()
}

// Get returns the pending value for key.
func (s *OutputStore) Get(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e.value, ok
}

// Len is the number of keys waiting to be sent.
func (s *OutputStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Snapshot copies the pending values.
func (s *OutputStore) Snapshot() map[string]json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, _ := s.snapshotLocked()
	return values
}

func (s *OutputStore) snapshotLocked() (map[string]json.RawMessage, map[string]uint64) {
	values := make(map[string]json.RawMessage, len(s.entries))
	seqs := make(map[string]uint64, len(s.entries))
	for key, e := range s.entries {
		values[key] = e.value
		seqs[key] = e.seq
	}
	return values, seqs
}

// commitLocked removes the keys a written frame carried, unless they
// were overwritten after the snapshot.
func (s *OutputStore) commitLocked(seqs map[string]uint64) {
	maps.DeleteFunc(s.entries, func(key string, e entry) bool {
		seq, sent := seqs[key]
		return sent && seq == e.seq
	})
}
