// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xyv

import (
	"context"
	"log/slog"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Sink is an slog.Handler that appends console lines to a LogBuffer:
//
//	INFO - setting arm to 3.5 volts
//	WARN - retrying axis=2 motor.current=1.2
//
// Records below the minimum level are dropped. Handlers derived with
// WithAttrs or WithGroup share the parent's buffer and level.
type Sink struct {
	buffer *LogBuffer
	level  slog.Leveler

	// attrs holds attributes added by WithAttrs, already formatted.
	attrs []byte
	// group is the dotted prefix for keys of attributes added later.
	group string
}

// NewSink returns a Sink writing to buffer. A nil level admits
// DefaultLevel and above.
func NewSink(buffer *LogBuffer, level slog.Leveler) *Sink {
	if level == nil {
		level = DefaultLevel
	}
	return &Sink{buffer: buffer, level: level}
}

// Enabled admits a record when its level is at or above the minimum.
func (s *Sink) Enabled(_ context.Context, level slog.Level) bool {
	return level >= s.level.Level()
}

func (s *Sink) Handle(_ context.Context, record slog.Record) error {
	line := make([]byte, 0, 16+len(record.Message)+len(s.attrs))
	line = append(line, levelName(record.Level)...)
	line = append(line, " - "...)
	line = append(line, record.Message...)
	line = append(line, s.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		line = appendAttr(line, s.group, attr)
		return true
	})
	line = append(line, '\n')
	s.buffer.Append(line)
	return nil
}

func (s *Sink) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return s
	}
	derived := *s
	derived.attrs = append([]byte(nil), s.attrs...)
	for _, attr := range attrs {
		derived.attrs = appendAttr(derived.attrs, s.group, attr)
	}
	return &derived
}

func (s *Sink) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	derived := *s
	derived.group = s.group + name + "."
	return &derived
}

func appendAttr(line []byte, group string, attr slog.Attr) []byte {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return line
	}
	if attr.Value.Kind() == slog.KindGroup {
		members := attr.Value.Group()
		if attr.Key != "" {
			group += attr.Key + "."
		}
		for _, member := range members {
			line = appendAttr(line, group, member)
		}
		return line
	}
	line = append(line, ' ')
	line = append(line, group...)
	line = append(line, attr.Key...)
	line = append(line, '=')
	text := attr.Value.String()
	if needsQuoting(text) {
		return strconv.AppendQuote(line, text)
	}
	return append(line, text...)
}

func needsQuoting(text string) bool {
	if text == "" {
		return true
	}
	for _, r := range text {
		if r == '=' || r == '"' || r == utf8.RuneError || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return true
		}
	}
	return false
}
