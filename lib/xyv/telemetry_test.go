// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xyv

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/xyv/lib/clock"
	"github.com/bureau-foundation/xyv/lib/testutil"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"missing transport", Config{}, "transport is required"},
		{"negative tick", Config{Transport: newFakeTransport(), TickInterval: -time.Second}, "tick interval"},
		{"negative heartbeat", Config{Transport: newFakeTransport(), HeartbeatInterval: -1}, "heartbeat interval"},
		{"bad policy", Config{Transport: newFakeTransport(), Policy: Policy(9)}, "unknown policy"},
		{"bad mark", Config{Transport: newFakeTransport(), HeartbeatMark: HeartbeatMark(9)}, "unknown heartbeat mark"},
		{"zero frame size", Config{Transport: &fakeTransport{}}, "max frame size"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(test.config)
			if err == nil {
				t.Fatal("New succeeded")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, test.wantErr)
			}
		})
	}
}

func TestRecordUnserializableLogsToConsole(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport()
	telemetry, _ := newTestTelemetry(t, transport)

	telemetry.Record("/Bad", make(chan int))

	if telemetry.Store().Len() != 0 {
		t.Error("unserializable value reached the store")
	}
	line := telemetry.Buffer().String()
	if !strings.HasPrefix(line, `ERROR - cannot record output key=/Bad type="chan int" error=`) {
		t.Errorf("console = %q", line)
	}
}

func TestTryRecordReturnsError(t *testing.T) {
	t.Parallel()

	telemetry, _ := newTestTelemetry(t, newFakeTransport())
	var serr *SerializationError
	if err := telemetry.TryRecord("/Bad", func() {}); !errors.As(err, &serr) {
		t.Fatalf("TryRecord = %v, want *SerializationError", err)
	}
	if telemetry.Buffer().Len() != 0 {
		t.Error("TryRecord logged its error")
	}
}

func TestNilTelemetryIsNoop(t *testing.T) {
	t.Parallel()

	var telemetry *Telemetry
	telemetry.Record("/Arm/Volts", 1)
	if err := telemetry.TryRecord("/Arm/Volts", 1); err != nil {
		t.Errorf("TryRecord on nil = %v", err)
	}
}

func TestConsoleLevelFromConfig(t *testing.T) {
	t.Parallel()

	telemetry, _ := newTestTelemetry(t, newFakeTransport(), func(c *Config) { c.Level = slog.LevelWarn })
	telemetry.Logger().Info("quiet")
	telemetry.Logger().Error("loud")
	if got := telemetry.Buffer().String(); got != "ERROR - loud\n" {
		t.Errorf("console = %q", got)
	}
}

// The install tests touch the process-wide slog default and must not
// run in parallel.

func TestInstallTwiceFails(t *testing.T) {
	first, _ := newTestTelemetry(t, newFakeTransport())
	second, _ := newTestTelemetry(t, newFakeTransport())

	if err := first.Install(); err != nil {
		t.Fatalf("first Install: %v", err)
	}
	t.Cleanup(first.Uninstall)

	if err := second.Install(); !errors.Is(err, ErrAlreadyInstalled) {
		t.Fatalf("second Install = %v, want ErrAlreadyInstalled", err)
	}

	// Uninstalling the wrong handle changes nothing.
	second.Uninstall()
	slog.Info("routed")
	if got := first.Buffer().String(); got != "INFO - routed\n" {
		t.Errorf("first console = %q", got)
	}

	first.Uninstall()
	if err := second.Install(); err != nil {
		t.Fatalf("Install after Uninstall: %v", err)
	}
	second.Uninstall()
}

func TestInstallRoutesStandardLog(t *testing.T) {
	previousFlags := log.Flags()
	telemetry, _ := newTestTelemetry(t, newFakeTransport())
	if err := telemetry.Install(); err != nil {
		t.Fatal(err)
	}
	log.Print("from the log package")
	telemetry.Uninstall()

	if got := telemetry.Buffer().String(); got != "INFO - from the log package\n" {
		t.Errorf("console = %q", got)
	}
	if log.Flags() != previousFlags {
		t.Errorf("log flags = %d after Uninstall, want %d", log.Flags(), previousFlags)
	}
}

func TestInitStartsFlusher(t *testing.T) {
	transport := newFakeTransport()
	fake := clock.Fake(epoch)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetry, err := Init(ctx, Config{Transport: transport, Clock: fake})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(telemetry.Uninstall)

	if _, err := Init(ctx, Config{Transport: newFakeTransport(), Clock: fake}); !errors.Is(err, ErrAlreadyInstalled) {
		t.Fatalf("second Init = %v, want ErrAlreadyInstalled", err)
	}
	if err := telemetry.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}

	testutil.RequireReceive(t, transport.written, 5*time.Second, "startup heartbeat")

	fake.WaitForTimers(1)
	slog.Info("setting arm to 3.5 volts")
	telemetry.Record("/Arm/OutputVolts", 3.5)
	fake.Advance(DefaultTickInterval)

	msg := decodeFrame(t, testutil.RequireReceive(t, transport.written, 5*time.Second, "data frame"))
	if got := rawString(t, msg.Data[DefaultConsoleKey]); got != "INFO - setting arm to 3.5 volts\n" {
		t.Errorf("console = %q", got)
	}
	if got := string(msg.Data["/Arm/OutputVolts"]); got != "3.5" {
		t.Errorf("/Arm/OutputVolts = %s", got)
	}

	cancel()
	testutil.RequireClosed(t, telemetry.Done(), 5*time.Second, "flusher exit")
	if err := telemetry.Err(); err != nil {
		t.Errorf("Err() = %v after clean shutdown", err)
	}
	if stats := telemetry.Stats(); stats.Sent < 2 || stats.BytesSent == 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestStartReportsFatalError(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport()
	transport.writeErr = errors.New("port closed")
	telemetry, _ := newTestTelemetry(t, transport)

	if err := telemetry.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	testutil.RequireClosed(t, telemetry.Done(), 5*time.Second, "flusher exit")

	var writeErr *WriteError
	if !errors.As(telemetry.Err(), &writeErr) {
		t.Errorf("Err() = %v, want *WriteError", telemetry.Err())
	}
}
