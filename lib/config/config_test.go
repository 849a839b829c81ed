// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/xyv/lib/xyv"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Telemetry.TickInterval != 20*time.Millisecond || cfg.Telemetry.HeartbeatInterval != 400*time.Millisecond {
		t.Errorf("telemetry defaults = %+v", cfg.Telemetry)
	}
	if cfg.Serial.BufferSize != 2048 {
		t.Errorf("serial.buffer_size = %d, want 2048", cfg.Serial.BufferSize)
	}
}

func TestLoadFileYAML(t *testing.T) {
	t.Setenv("XYV_PORT", "/dev/ttyUSB3")
	path := writeFile(t, "xyv.yaml", `
telemetry:
  tick_interval: 50ms
  policy: unconditional
  heartbeat_mark: success
  level: trace
serial:
  device: ${XYV_PORT:-/dev/ttyACM0}
  baud: 921600
monitor:
  record: ${XYV_UNSET_FOR_TEST:-/tmp/arm.xyvcap}
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Telemetry.TickInterval != 50*time.Millisecond {
		t.Errorf("tick_interval = %v", cfg.Telemetry.TickInterval)
	}
	if cfg.Telemetry.HeartbeatInterval != xyv.DefaultHeartbeatInterval {
		t.Errorf("heartbeat_interval = %v, want the default", cfg.Telemetry.HeartbeatInterval)
	}
	if cfg.Serial.Device != "/dev/ttyUSB3" {
		t.Errorf("device = %q, want the environment value", cfg.Serial.Device)
	}
	if cfg.Serial.Baud != 921600 || cfg.Serial.BufferSize != 2048 {
		t.Errorf("serial = %+v", cfg.Serial)
	}
	if cfg.Monitor.Record != "/tmp/arm.xyvcap" {
		t.Errorf("record = %q, want the fallback", cfg.Monitor.Record)
	}

	telemetry, level, err := cfg.Telemetry.XYV(nil, nil, nil)
	if err != nil {
		t.Fatalf("XYV: %v", err)
	}
	if telemetry.Policy != xyv.PolicyUnconditional || telemetry.HeartbeatMark != xyv.MarkOnSuccess {
		t.Errorf("telemetry config = %+v", telemetry)
	}
	if level.Level() != xyv.LevelTrace {
		t.Errorf("level = %v, want trace", level.Level())
	}
	level.Set(slog.LevelError)
	if telemetry.Level.Level() != slog.LevelError {
		t.Error("returned LevelVar is not the one in the config")
	}
}

func TestLoadFileJSONC(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "xyv.jsonc", `{
  // Slow link on the bench rig.
  "serial": {"baud": 9600, "buffer_size": 256},
  "telemetry": {
    "heartbeat_interval": "1s",
    "delimiter": "\r\n", /* CRLF for the logic analyser */
  },
}`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Serial.Baud != 9600 || cfg.Serial.BufferSize != 256 {
		t.Errorf("serial = %+v", cfg.Serial)
	}
	if cfg.Telemetry.HeartbeatInterval != time.Second {
		t.Errorf("heartbeat_interval = %v", cfg.Telemetry.HeartbeatInterval)
	}
	if cfg.Telemetry.Delimiter != "\r\n" {
		t.Errorf("delimiter = %q", cfg.Telemetry.Delimiter)
	}
}

func TestLoadFileReportsEveryProblem(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "bad.yaml", `
telemetry:
  tick_interval: -1s
  policy: sometimes
  level: shouty
serial:
  buffer_size: 8
monitor:
  compression: rar
`)
	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("LoadFile accepted an invalid file")
	}
	for _, field := range []string{"tick_interval", "policy", "level", "buffer_size", "compression"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error does not mention %s: %v", field, err)
		}
	}
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadFile(absent) = %v, want os.ErrNotExist", err)
	}
}

func TestLoadUsesEnvironment(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	cfg, err := Load()
	if err != nil || cfg.Serial.Baud != 115200 {
		t.Fatalf("Load() without %s = %+v, %v", EnvironmentVariable, cfg, err)
	}

	t.Setenv(EnvironmentVariable, writeFile(t, "env.yaml", "serial:\n  baud: 57600\n"))
	cfg, err = Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Serial.Baud != 57600 {
		t.Errorf("baud = %d, want 57600", cfg.Serial.Baud)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("XYV_TEST_HOME", "/home/arm")
	t.Setenv("XYV_TEST_EMPTY", "")
	for input, want := range map[string]string{
		"${XYV_TEST_HOME}/cap":                     "/home/arm/cap",
		"${XYV_TEST_EMPTY:-fallback}":              "fallback",
		"${XYV_TEST_MISSING}":                      "",
		"plain/path":                               "plain/path",
		"${XYV_TEST_HOME:-x}/${XYV_TEST_EMPTY:-y}": "/home/arm/y",
	} {
		if got := expandVars(input); got != want {
			t.Errorf("expandVars(%q) = %q, want %q", input, got, want)
		}
	}
}
