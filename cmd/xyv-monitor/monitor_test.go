// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/xyv/lib/capture"
	"github.com/bureau-foundation/xyv/lib/clock"
	"github.com/bureau-foundation/xyv/lib/hostlink"
	"github.com/bureau-foundation/xyv/lib/testutil"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const session = `{"data":{"/Arm/OutputVolts":1.5,"/Console":"INFO - setting arm to 1.5 volts\n"},"now_sec":0.02}
{"data":{"/Arm/OutputVolts":1.5},"now_sec":0.04}

not json at all
{"data":{},"now_sec":0.44}
{"data":{"/Arm/OutputVolts":-2},"now_sec":0.46}
`

func newTestMonitor() *monitor {
	return &monitor{
		board:      hostlink.NewBoard("", time.Second, 10),
		consoleKey: hostlink.DefaultConsoleKey,
		logger:     slog.New(slog.DiscardHandler),
	}
}

func newStreamSource(input string, clk clock.Clock) *streamSource {
	return &streamSource{
		reader: hostlink.NewReader(strings.NewReader(input), hostlink.NewDecoder(""), "\n", 2048),
		clock:  clk,
	}
}

func TestPumpPrintsChangesAndConsole(t *testing.T) {
	t.Parallel()

	m := newTestMonitor()
	var out bytes.Buffer
	m.text = &out

	if err := m.pump(context.Background(), newStreamSource(session, clock.Fake(epoch))); err != nil {
		t.Fatalf("pump: %v", err)
	}

	want := "[     0.020] /Arm/OutputVolts = 1.5\n" +
		"[     0.020] INFO - setting arm to 1.5 volts\n" +
		"[     0.460] /Arm/OutputVolts = -2\n"
	if out.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", out.String(), want)
	}

	snapshot := m.board.Snapshot()
	if snapshot.Frames != 4 || snapshot.Heartbeats != 1 || snapshot.Malformed != 1 {
		t.Errorf("frames %d heartbeats %d malformed %d, want 4 1 1",
			snapshot.Frames, snapshot.Heartbeats, snapshot.Malformed)
	}
	if value, ok := m.board.Get("/Arm/OutputVolts"); !ok || string(value.Raw) != "-2" || !value.UpdatedAt.Equal(epoch) {
		t.Errorf("/Arm/OutputVolts = %+v, %v", value, ok)
	}
}

func TestPumpTextStripsTerminalEscapes(t *testing.T) {
	t.Parallel()

	m := newTestMonitor()
	var out bytes.Buffer
	m.text = &out

	input := `{"data":{"/Arm/\u001b[2JVolts":1,"/Console":"WARN - \u001b[5mblink\u001b[0m\u001b]0;title\u0007 done\n"},"now_sec":0.5}` + "\n"
	if err := m.pump(context.Background(), newStreamSource(input, clock.Fake(epoch))); err != nil {
		t.Fatalf("pump: %v", err)
	}

	want := "[     0.500] /Arm/Volts = 1\n[     0.500] WARN - blink done\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestPumpEchoSkipsMalformedFrames(t *testing.T) {
	t.Parallel()

	m := newTestMonitor()
	var out bytes.Buffer
	m.echo = &out

	if err := m.pump(context.Background(), newStreamSource(session, clock.Fake(epoch))); err != nil {
		t.Fatalf("pump: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("echoed %d frames, want 4:\n%s", len(lines), out.String())
	}
	if lines[2] != `{"data":{},"now_sec":0.44}` {
		t.Errorf("third frame = %s", lines[2])
	}
}

func TestPumpStopsWhenCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := newTestMonitor()
	if err := m.pump(ctx, newStreamSource(session, clock.Fake(epoch))); err != nil {
		t.Fatalf("pump: %v", err)
	}
	if frames := m.board.Snapshot().Frames; frames != 0 {
		t.Errorf("handled %d frames after cancel", frames)
	}
}

func TestPumpReportsOversizedFrame(t *testing.T) {
	t.Parallel()

	src := &streamSource{
		reader: hostlink.NewReader(strings.NewReader(strings.Repeat("x", 100)+"\n"), hostlink.NewDecoder(""), "\n", 16),
		clock:  clock.Fake(epoch),
	}
	if err := newTestMonitor().pump(context.Background(), src); err == nil {
		t.Error("pump accepted a frame longer than the limit")
	}
}

func TestRecordThenReplay(t *testing.T) {
	t.Parallel()

	clk := clock.Fake(epoch)
	var file bytes.Buffer
	writer, err := capture.NewWriter(&file, capture.WriterOptions{
		Compression: capture.CompressionZstd,
		Source:      "stdin",
		StartedAt:   epoch,
	})
	if err != nil {
		t.Fatal(err)
	}

	live := newTestMonitor()
	live.recorder = writer
	src := newStreamSource(session, clk)
	for {
		next, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if err := live.handle(next); err != nil {
			t.Fatal(err)
		}
		clk.Advance(20 * time.Millisecond)
	}
	live.detachRecorder()
	if writer.Records() != 5 {
		t.Errorf("recorded %d frames, want 5 including the malformed one", writer.Records())
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	reader, err := capture.NewReader(&file)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	replayed := newTestMonitor()
	var out bytes.Buffer
	replayed.echo = &out
	replay := &replaySource{reader: reader, decoder: hostlink.NewDecoder(""), clock: clock.Fake(epoch)}
	if err := replayed.pump(context.Background(), replay); err != nil {
		t.Fatalf("replay: %v", err)
	}

	if got, want := replayed.board.Snapshot(), live.board.Snapshot(); got.Frames != want.Frames || got.Malformed != want.Malformed {
		t.Errorf("replay saw %d frames and %d malformed, live saw %d and %d",
			got.Frames, got.Malformed, want.Frames, want.Malformed)
	}
	value, _ := replayed.board.Get("/Arm/OutputVolts")
	if want := epoch.Add(80 * time.Millisecond); !value.UpdatedAt.Equal(want) {
		t.Errorf("replayed value received at %v, want the recorded time %v", value.UpdatedAt, want)
	}
}

func TestReplayRealtimeSleepsBetweenFrames(t *testing.T) {
	t.Parallel()

	var file bytes.Buffer
	writer, err := capture.NewWriter(&file, capture.WriterOptions{StartedAt: epoch})
	if err != nil {
		t.Fatal(err)
	}
	for i, frame := range []string{`{"data":{},"now_sec":0}`, `{"data":{},"now_sec":0.5}`} {
		if err := writer.Append(epoch.Add(time.Duration(i)*500*time.Millisecond), []byte(frame)); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	reader, err := capture.NewReader(&file)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	clk := clock.Fake(epoch)
	replay := &replaySource{reader: reader, decoder: hostlink.NewDecoder(""), clock: clk, realtime: true}
	if _, err := replay.Next(); err != nil {
		t.Fatal(err)
	}

	arrivals := make(chan arrival, 1)
	go func() {
		next, err := replay.Next()
		if err != nil {
			t.Error(err)
		}
		arrivals <- next
	}()
	clk.WaitForTimers(1)
	select {
	case <-arrivals:
		t.Fatal("second frame replayed before its gap elapsed")
	default:
	}
	clk.Advance(500 * time.Millisecond)
	next := testutil.RequireReceive(t, arrivals, 5*time.Second, "second replayed frame")
	if next.Frame == nil || next.Frame.NowSec != 0.5 {
		t.Errorf("second frame = %+v", next.Frame)
	}
}
