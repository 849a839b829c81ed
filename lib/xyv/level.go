// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xyv

import (
	"fmt"
	"log/slog"
	"strings"
)

// LevelTrace is more verbose than slog.LevelDebug. The default minimum
// level excludes it.
const LevelTrace = slog.Level(-8)

// DefaultLevel is the minimum level admitted when Config.Level is nil.
const DefaultLevel = slog.LevelDebug

// levelName renders the level prefix of a console line.
func levelName(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return "TRACE"
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel accepts the names printed on console lines, case
// insensitively, plus slog's offset syntax ("info+2").
func ParseLevel(name string) (slog.Level, error) {
	if strings.EqualFold(name, "trace") {
		return LevelTrace, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}
