// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/xyv/lib/clock"
	"github.com/bureau-foundation/xyv/lib/config"
	"github.com/bureau-foundation/xyv/lib/process"
	"github.com/bureau-foundation/xyv/lib/serialport"
	"github.com/bureau-foundation/xyv/lib/version"
	"github.com/bureau-foundation/xyv/lib/xyv"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath string
		port       string
		baud       int
		policy     string
		level      string
		rate       time.Duration
		duration   time.Duration
	)

	flagSet := pflag.NewFlagSet("xyv-demo", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&port, "port", "", "serial device to write frames to (default: stdout)")
	flagSet.IntVar(&baud, "baud", serialport.DefaultBaud, "link speed, also the stdout drain rate")
	flagSet.StringVar(&policy, "policy", "", "transmission policy: capacity-checked or unconditional")
	flagSet.StringVar(&level, "level", "", "minimum console level: trace, debug, info, warn, error")
	flagSet.DurationVar(&rate, "rate", 10*time.Millisecond, "control loop period")
	flagSet.DurationVar(&duration, "duration", 0, "stop after this long (default: run until interrupted)")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("xyv-demo")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}
	if rate <= 0 {
		return fmt.Errorf("--rate must be positive, got %v", rate)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("port") {
		cfg.Serial.Device = port
	}
	if flagSet.Changed("baud") {
		cfg.Serial.Baud = baud
	}
	if flagSet.Changed("policy") {
		cfg.Telemetry.Policy = policy
	}
	if flagSet.Changed("level") {
		cfg.Telemetry.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	link, err := openLink(cfg.Serial, logger)
	if err != nil {
		return err
	}
	defer link.close()

	telemetryConfig, _, err := cfg.Telemetry.XYV(link.transport, clock.Real(), logger)
	if err != nil {
		return err
	}
	telemetry, err := xyv.Init(ctx, telemetryConfig)
	if err != nil {
		return err
	}
	defer telemetry.Uninstall()

	logger.Info("telemetry started",
		"device", link.name,
		"baud", cfg.Serial.Baud,
		"policy", telemetryConfig.Policy,
		"tick_interval", telemetryConfig.TickInterval,
	)

	controlLoop(ctx, telemetry, rate)

	<-telemetry.Done()
	stats := telemetry.Stats()
	logger.Info("telemetry stopped",
		"ticks", stats.Ticks,
		"sent", stats.Sent,
		"deferred", stats.Deferred,
		"skipped", stats.Skipped,
		"heartbeats", stats.Heartbeats,
		"bytes_sent", stats.BytesSent,
	)
	if err := telemetry.Err(); err != nil {
		return fmt.Errorf("telemetry link failed: %w", err)
	}
	return nil
}

// controlLoop drives a slow sine sweep until ctx is cancelled or the
// flusher stops on its own.
func controlLoop(ctx context.Context, telemetry *xyv.Telemetry, rate time.Duration) {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	started := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-telemetry.Done():
			return
		case now := <-ticker.C:
			volts := math.Round(6*math.Sin(now.Sub(started).Seconds())*100) / 100
			slog.Info(fmt.Sprintf("setting arm to %v volts", volts))
			telemetry.Record("/Arm/OutputVolts", volts)
			slog.Log(ctx, xyv.LevelTrace, "loop", "elapsed", now.Sub(started))
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// newLogger builds the operational logger. Text when stderr is a
// terminal, JSON otherwise.
func newLogger() *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, options))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, options))
}

type link struct {
	name      string
	transport xyv.Transport
	close     func()
}

// openLink opens the configured serial device, or a rate-limited queue
// on stdout when none is configured. The stdout queue keeps draining
// until close, which flushes what is left.
func openLink(serial config.SerialConfig, logger *slog.Logger) (*link, error) {
	options := serialport.Options{Baud: serial.Baud, BufferSize: serial.BufferSize}
	if serial.Device != "" {
		port, err := serialport.Open(serial.Device, options)
		if err != nil {
			return nil, err
		}
		return &link{
			name:      serial.Device,
			transport: port,
			close: func() {
				if err := port.Close(); err != nil {
					logger.Warn("closing serial port", "device", serial.Device, "error", err)
				}
			},
		}, nil
	}

	queue := serialport.NewQueue(os.Stdout, serialport.QueueOptions{
		Capacity:       serial.BufferSize,
		BytesPerSecond: serialport.BytesPerSecond(serial.Baud),
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- queue.Run(ctx) }()
	return &link{
		name:      "stdout",
		transport: queue,
		close: func() {
			cancel()
			if err := <-done; err != nil {
				logger.Warn("draining stdout", "error", err)
			}
		},
	}, nil
}
