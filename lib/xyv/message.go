// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xyv

import (
	"encoding/json"
	"maps"
)

// DefaultConsoleKey is the output key that carries buffered log text.
const DefaultConsoleKey = "/Console"

// Message is the body of one frame.
type Message struct {
	// Data holds every pending output plus, when log text is buffered,
	// the console text under the console key.
	Data map[string]json.RawMessage `json:"data"`

	// NowSec is the time since the telemetry handle was created, in
	// seconds. It never decreases within one process.
	NowSec float64 `json:"now_sec"`
}

// buildMessage combines a store snapshot and the console text. values
// is copied; neither source is modified. A recorded value under
// consoleKey is shadowed in the message when console text is present.
func buildMessage(values map[string]json.RawMessage, console, consoleKey string, nowSec float64) (Message, error) {
	data := make(map[string]json.RawMessage, len(values)+1)
	maps.Copy(data, values)
	if console != "" {
		encoded, err := encodeCompact(console)
		if err != nil {
			return Message{}, &SerializationError{Key: consoleKey, Type: "string", Err: err}
		}
		data[consoleKey] = encoded
	}
	return Message{Data: data, NowSec: nowSec}, nil
}
