// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xyv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/xyv/lib/clock"
)

// Config configures a Telemetry handle. Only Transport is required.
type Config struct {
	// Transport carries frames to the host.
	Transport Transport

	// Clock drives ticks and now_sec. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives the flusher's own diagnostics. It is separate
	// from the console sink so those diagnostics never end up in a
	// frame. Defaults to a discarding logger.
	Logger *slog.Logger

	// Level is the minimum level the console sink admits. Defaults to
	// DefaultLevel. Pass a *slog.LevelVar to change it at runtime.
	Level slog.Leveler

	// TickInterval defaults to DefaultTickInterval.
	TickInterval time.Duration

	// HeartbeatInterval defaults to DefaultHeartbeatInterval.
	HeartbeatInterval time.Duration

	// Policy defaults to PolicyCapacityChecked.
	Policy Policy

	// HeartbeatMark defaults to MarkOnAttempt.
	HeartbeatMark HeartbeatMark

	// ConsoleKey defaults to DefaultConsoleKey.
	ConsoleKey string

	// Delimiter defaults to DefaultDelimiter. It must not occur inside
	// compact JSON, which rules out anything but whitespace and control
	// bytes in practice.
	Delimiter string
}

func (c *Config) setDefaults() {
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.Level == nil {
		c.Level = DefaultLevel
	}
	if c.TickInterval == 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.ConsoleKey == "" {
		c.ConsoleKey = DefaultConsoleKey
	}
	if c.Delimiter == "" {
		c.Delimiter = DefaultDelimiter
	}
}

func (c *Config) validate() error {
	if c.Transport == nil {
		return errors.New("transport is required")
	}
	if c.TickInterval < 0 {
		return fmt.Errorf("tick interval must be positive, got %v", c.TickInterval)
	}
	if c.HeartbeatInterval < 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %v", c.HeartbeatInterval)
	}
	if c.Policy != PolicyCapacityChecked && c.Policy != PolicyUnconditional {
		return fmt.Errorf("unknown policy %v", c.Policy)
	}
	if c.HeartbeatMark != MarkOnAttempt && c.HeartbeatMark != MarkOnSuccess {
		return fmt.Errorf("unknown heartbeat mark %v", c.HeartbeatMark)
	}
	if limit := c.Transport.MaxFrameSize(); limit <= 0 {
		return fmt.Errorf("transport max frame size must be positive, got %d", limit)
	}
	return nil
}

// Telemetry owns one device's stores, console logger, and flusher.
//
// A nil *Telemetry is valid: Record and TryRecord do nothing, so
// components can hold an optional handle without nil checks.
type Telemetry struct {
	buffer  *LogBuffer
	store   *OutputStore
	sink    *Sink
	logger  *slog.Logger
	flusher *Flusher

	started atomic.Bool
	done    chan struct{}
	err     error
}

// New builds a Telemetry without installing it or starting the flusher.
func New(config Config) (*Telemetry, error) {
	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("xyv: %w", err)
	}

	buffer := &LogBuffer{}
	store := NewOutputStore()
	sink := NewSink(buffer, config.Level)
	return &Telemetry{
		buffer: buffer,
		store:  store,
		sink:   sink,
		logger: slog.New(sink),
		flusher: &Flusher{
			store:     store,
			buffer:    buffer,
			gate:      gate{transport: config.Transport, policy: config.Policy},
			clock:     config.Clock,
			logger:    config.Logger,
			start:     config.Clock.Now(),
			interval:  config.TickInterval,
			heartbeat: config.HeartbeatInterval,
			mark:      config.HeartbeatMark,
			key:       config.ConsoleKey,
			delimiter: config.Delimiter,
		},
		done: make(chan struct{}),
	}, nil
}

// Init builds a Telemetry, installs it as the slog default, and starts
// its flusher. A second Init in the same process fails with
// ErrAlreadyInstalled until the first handle is uninstalled.
func Init(ctx context.Context, config Config) (*Telemetry, error) {
	telemetry, err := New(config)
	if err != nil {
		return nil, err
	}
	if err := telemetry.Install(); err != nil {
		return nil, err
	}
	if err := telemetry.Start(ctx); err != nil {
		telemetry.Uninstall()
		return nil, err
	}
	return telemetry, nil
}

// Logger returns a logger that writes to the console buffer.
func (t *Telemetry) Logger() *slog.Logger { return t.logger }

// Handler returns the console sink.
func (t *Telemetry) Handler() slog.Handler { return t.sink }

// Buffer returns the pending console text.
func (t *Telemetry) Buffer() *LogBuffer { return t.buffer }

// Store returns the pending outputs.
func (t *Telemetry) Store() *OutputStore { return t.store }

// Flusher returns the flusher, for driving ticks by hand.
func (t *Telemetry) Flusher() *Flusher { return t.flusher }

// Record stores value under key for the next frame. A value that
// cannot be serialized is reported on the console at error level and
// otherwise ignored.
func (t *Telemetry) Record(key string, value any) {
	if t == nil {
		return
	}
	var serr *SerializationError
	if err := t.TryRecord(key, value); errors.As(err, &serr) {
		t.logger.Error("cannot record output", "key", key, "type", serr.Type, "error", serr.Err)
	}
}

// TryRecord is Record with the serialization error returned instead of
// logged.
func (t *Telemetry) TryRecord(key string, value any) error {
	if t == nil {
		return nil
	}
	return t.store.Record(key, value)
}

// Start runs the flusher in a new goroutine until ctx is cancelled.
// Done is closed when it stops; Err then reports why.
func (t *Telemetry) Start(ctx context.Context) error {
	if !t.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go func() {
		defer close(t.done)
		t.err = t.flusher.Run(ctx)
	}()
	return nil
}

// Done is closed when a started flusher returns.
func (t *Telemetry) Done() <-chan struct{} { return t.done }

// Err is the flusher's fatal error, or nil after a clean shutdown. Only
// meaningful once Done is closed.
func (t *Telemetry) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Stats returns the flusher counters.
func (t *Telemetry) Stats() Stats { return t.flusher.Stats() }

// installation is the process-wide slog default owned by a Telemetry,
// with what it replaced.
var installation struct {
	mu       sync.Mutex
	owner    *Telemetry
	previous *slog.Logger
	output   io.Writer
	flags    int
}

// Install makes this handle's console logger the slog default, so
// slog.Info and the log package write to the console buffer.
func (t *Telemetry) Install() error {
	installation.mu.Lock()
	defer installation.mu.Unlock()
	if installation.owner != nil {
		return ErrAlreadyInstalled
	}
	installation.owner = t
	installation.previous = slog.Default()
	installation.output = log.Writer()
	installation.flags = log.Flags()
	slog.SetDefault(t.logger)
	return nil
}

// Uninstall restores the slog default that Install replaced. It does
// nothing if this handle is not installed.
func (t *Telemetry) Uninstall() {
	installation.mu.Lock()
	defer installation.mu.Unlock()
	if installation.owner != t {
		return
	}
	slog.SetDefault(installation.previous)
	log.SetOutput(installation.output)
	log.SetFlags(installation.flags)
	installation.owner = nil
	installation.previous = nil
	installation.output = nil
}
