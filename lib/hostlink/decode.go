// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostlink

import (
	"encoding/json"
	"fmt"

	"github.com/valyala/fastjson"
)

// DefaultConsoleKey matches the device's default console key.
const DefaultConsoleKey = "/Console"

// Frame is one decoded device message.
type Frame struct {
	// Data holds every key of the frame as raw JSON, the console key
	// included.
	Data map[string]json.RawMessage
	// NowSec is the device's seconds since start.
	NowSec float64
	// Console is the decoded console text, empty if the frame had none.
	Console string
}

// Heartbeat reports whether the frame carried no data.
func (f *Frame) Heartbeat() bool { return len(f.Data) == 0 }

// FrameError describes a frame that is not a device message. Raw is a
// copy of the offending bytes.
type FrameError struct {
	Raw    []byte
	Reason string
	Err    error
}

func (e *FrameError) Error() string {
	const preview = 64
	raw := e.Raw
	if len(raw) > preview {
		raw = raw[:preview]
	}
	if e.Err != nil {
		return fmt.Sprintf("malformed frame %q: %s: %v", raw, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed frame %q: %s", raw, e.Reason)
}

func (e *FrameError) Unwrap() error { return e.Err }

// Decoder parses frames. It is safe for concurrent use.
type Decoder struct {
	consoleKey string
	parsers    fastjson.ParserPool
}

// NewDecoder returns a Decoder that reads console text from consoleKey,
// or DefaultConsoleKey when empty.
func NewDecoder(consoleKey string) *Decoder {
	if consoleKey == "" {
		consoleKey = DefaultConsoleKey
	}
	return &Decoder{consoleKey: consoleKey}
}

// Decode parses one frame without its delimiter. The returned Frame
// does not reference raw.
func (d *Decoder) Decode(raw []byte) (*Frame, error) {
	parser := d.parsers.Get()
	defer d.parsers.Put(parser)

	value, err := parser.ParseBytes(raw)
	if err != nil {
		return nil, d.fail(raw, "not JSON", err)
	}
	if value.Type() != fastjson.TypeObject {
		return nil, d.fail(raw, "not a JSON object", nil)
	}

	nowSec := value.Get("now_sec")
	if nowSec == nil || nowSec.Type() != fastjson.TypeNumber {
		return nil, d.fail(raw, "now_sec missing or not a number", nil)
	}
	seconds, err := nowSec.Float64()
	if err != nil {
		return nil, d.fail(raw, "now_sec out of range", err)
	}

	data := value.Get("data")
	if data == nil {
		return nil, d.fail(raw, "data missing", nil)
	}
	object, err := data.Object()
	if err != nil {
		return nil, d.fail(raw, "data is not an object", err)
	}

	frame := &Frame{Data: make(map[string]json.RawMessage, object.Len()), NowSec: seconds}
	object.Visit(func(key []byte, member *fastjson.Value) {
		frame.Data[string(key)] = member.MarshalTo(nil)
		if string(key) == d.consoleKey {
			if text, err := member.StringBytes(); err == nil {
				frame.Console = string(text)
			}
		}
	})
	return frame, nil
}

func (d *Decoder) fail(raw []byte, reason string, err error) *FrameError {
	return &FrameError{Raw: append([]byte(nil), raw...), Reason: reason, Err: err}
}
