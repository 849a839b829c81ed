// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/xyv/lib/capture"
	"github.com/bureau-foundation/xyv/lib/hostlink"
)

// monitor feeds arrivals into the board and whichever outputs are
// enabled. Nil outputs are skipped.
type monitor struct {
	board      *hostlink.Board
	consoleKey string

	mu       sync.Mutex
	recorder *capture.Writer

	// echo receives each valid frame followed by a newline.
	echo io.Writer
	// text receives value changes and console lines.
	text   io.Writer
	logger *slog.Logger
}

// pump handles arrivals from src until it ends or ctx is cancelled. The
// end of input is not an error.
func (m *monitor) pump(ctx context.Context, src source) error {
	for ctx.Err() == nil {
		next, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := m.handle(next); err != nil {
			return err
		}
	}
	return nil
}

func (m *monitor) handle(next arrival) error {
	if err := m.record(next); err != nil {
		return err
	}

	if next.Frame == nil {
		m.board.Malformed()
		m.logger.Warn("malformed frame", "error", next.Err)
		return nil
	}

	var changed []string
	if m.text != nil {
		changed = m.changedKeys(next.Frame)
	}
	m.board.Apply(next.At, next.Frame)

	if m.echo != nil {
		if _, err := fmt.Fprintf(m.echo, "%s\n", next.Raw); err != nil {
			return err
		}
	}
	if m.text != nil {
		return m.printText(next.Frame, changed)
	}
	return nil
}

func (m *monitor) record(next arrival) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recorder == nil {
		return nil
	}
	if err := m.recorder.Append(next.At, next.Raw); err != nil {
		return fmt.Errorf("recording frame: %w", err)
	}
	return nil
}

// detachRecorder stops recording. Once it returns the capture writer is
// no longer used and may be closed.
func (m *monitor) detachRecorder() {
	m.mu.Lock()
	m.recorder = nil
	m.mu.Unlock()
}

// changedKeys lists the keys in frame whose values differ from what the
// board holds, in key order.
func (m *monitor) changedKeys(frame *hostlink.Frame) []string {
	var changed []string
	for _, key := range slices.Sorted(maps.Keys(frame.Data)) {
		if key == m.consoleKey {
			continue
		}
		previous, ok := m.board.Get(key)
		if !ok || string(previous.Raw) != string(frame.Data[key]) {
			changed = append(changed, key)
		}
	}
	return changed
}

// printText writes value changes and console lines with terminal escape
// sequences removed, since both come from the device unfiltered.
func (m *monitor) printText(frame *hostlink.Frame, changed []string) error {
	var out strings.Builder
	for _, key := range changed {
		fmt.Fprintf(&out, "[%10.3f] %s = %s\n", frame.NowSec, ansi.Strip(key), ansi.Strip(string(frame.Data[key])))
	}
	if frame.Console != "" {
		for line := range strings.SplitSeq(strings.TrimSuffix(frame.Console, "\n"), "\n") {
			fmt.Fprintf(&out, "[%10.3f] %s\n", frame.NowSec, ansi.Strip(line))
		}
	}
	_, err := io.WriteString(m.text, out.String())
	return err
}
