// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/xyv/lib/capture"
	"github.com/bureau-foundation/xyv/lib/clock"
	"github.com/bureau-foundation/xyv/lib/serialport"
	"github.com/bureau-foundation/xyv/lib/xyv"
)

// EnvironmentVariable names the config file when no path is given.
const EnvironmentVariable = "XYV_CONFIG"

// Config is the whole file.
type Config struct {
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Serial    SerialConfig    `yaml:"serial"`
	Monitor   MonitorConfig   `yaml:"monitor"`
}

// TelemetryConfig is the device-side flush behaviour.
type TelemetryConfig struct {
	TickInterval      time.Duration `yaml:"tick_interval"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	Policy            string        `yaml:"policy"`
	HeartbeatMark     string        `yaml:"heartbeat_mark"`
	Level             string        `yaml:"level"`
	ConsoleKey        string        `yaml:"console_key"`
	Delimiter         string        `yaml:"delimiter"`
}

// SerialConfig is the link itself. Both ends must agree on it.
type SerialConfig struct {
	// Device is the tty path. Empty means stdout for the demo and
	// stdin for the monitor.
	Device     string `yaml:"device"`
	Baud       int    `yaml:"baud"`
	BufferSize int    `yaml:"buffer_size"`
}

// MonitorConfig is the host-side reader.
type MonitorConfig struct {
	StaleAfter   time.Duration `yaml:"stale_after"`
	ConsoleLines int           `yaml:"console_lines"`
	// Record is a capture file to write, empty for none.
	Record      string `yaml:"record"`
	Compression string `yaml:"compression"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Telemetry: TelemetryConfig{
			TickInterval:      xyv.DefaultTickInterval,
			HeartbeatInterval: xyv.DefaultHeartbeatInterval,
			Policy:            xyv.PolicyCapacityChecked.String(),
			HeartbeatMark:     xyv.MarkOnAttempt.String(),
			Level:             "debug",
			ConsoleKey:        xyv.DefaultConsoleKey,
			Delimiter:         xyv.DefaultDelimiter,
		},
		Serial: SerialConfig{
			Baud:       serialport.DefaultBaud,
			BufferSize: serialport.DefaultBufferSize,
		},
		Monitor: MonitorConfig{
			StaleAfter:   2 * time.Second,
			ConsoleLines: 200,
			Compression:  string(capture.CompressionZstd),
		},
	}
}

// Load reads the file named by XYV_CONFIG, or returns Default when the
// variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads path over the defaults and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is YAML once comments and trailing commas are gone.
		data = jsonc.ToJSON(data)
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) expandVariables() {
	c.Serial.Device = expandVars(c.Serial.Device)
	c.Monitor.Record = expandVars(c.Monitor.Record)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} with the environment value and
// ${VAR:-default} with default when VAR is unset or empty.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error

	if c.Telemetry.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("telemetry.tick_interval must be positive, got %v", c.Telemetry.TickInterval))
	}
	if c.Telemetry.HeartbeatInterval <= 0 {
		errs = append(errs, fmt.Errorf("telemetry.heartbeat_interval must be positive, got %v", c.Telemetry.HeartbeatInterval))
	}
	if _, err := xyv.ParsePolicy(c.Telemetry.Policy); err != nil {
		errs = append(errs, fmt.Errorf("telemetry.policy: %w", err))
	}
	if _, err := xyv.ParseHeartbeatMark(c.Telemetry.HeartbeatMark); err != nil {
		errs = append(errs, fmt.Errorf("telemetry.heartbeat_mark: %w", err))
	}
	if _, err := xyv.ParseLevel(c.Telemetry.Level); err != nil {
		errs = append(errs, fmt.Errorf("telemetry.level: %w", err))
	}
	if c.Telemetry.ConsoleKey == "" {
		errs = append(errs, errors.New("telemetry.console_key is required"))
	}
	if c.Telemetry.Delimiter == "" {
		errs = append(errs, errors.New("telemetry.delimiter is required"))
	}

	if c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud))
	}
	if c.Serial.BufferSize < 64 {
		errs = append(errs, fmt.Errorf("serial.buffer_size must be at least 64, got %d", c.Serial.BufferSize))
	}

	if c.Monitor.StaleAfter <= 0 {
		errs = append(errs, fmt.Errorf("monitor.stale_after must be positive, got %v", c.Monitor.StaleAfter))
	}
	if c.Monitor.ConsoleLines < 0 {
		errs = append(errs, fmt.Errorf("monitor.console_lines must not be negative, got %d", c.Monitor.ConsoleLines))
	}
	if _, err := capture.ParseCompression(c.Monitor.Compression); err != nil {
		errs = append(errs, fmt.Errorf("monitor.compression: %w", err))
	}

	return errors.Join(errs...)
}

// XYV builds the telemetry configuration for transport. The level is
// returned as a *slog.LevelVar so callers can adjust it later.
func (t TelemetryConfig) XYV(transport xyv.Transport, clk clock.Clock, logger *slog.Logger) (xyv.Config, *slog.LevelVar, error) {
	policy, err := xyv.ParsePolicy(t.Policy)
	if err != nil {
		return xyv.Config{}, nil, err
	}
	mark, err := xyv.ParseHeartbeatMark(t.HeartbeatMark)
	if err != nil {
		return xyv.Config{}, nil, err
	}
	parsed, err := xyv.ParseLevel(t.Level)
	if err != nil {
		return xyv.Config{}, nil, err
	}
	level := new(slog.LevelVar)
	level.Set(parsed)

	return xyv.Config{
		Transport:         transport,
		Clock:             clk,
		Logger:            logger,
		Level:             level,
		TickInterval:      t.TickInterval,
		HeartbeatInterval: t.HeartbeatInterval,
		Policy:            policy,
		HeartbeatMark:     mark,
		ConsoleKey:        t.ConsoleKey,
		Delimiter:         t.Delimiter,
	}, level, nil
}
