// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/xyv/lib/capture"
	"github.com/bureau-foundation/xyv/lib/clock"
	"github.com/bureau-foundation/xyv/lib/config"
	"github.com/bureau-foundation/xyv/lib/hostlink"
	"github.com/bureau-foundation/xyv/lib/process"
	"github.com/bureau-foundation/xyv/lib/serialport"
	"github.com/bureau-foundation/xyv/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

type options struct {
	configPath  string
	port        string
	baud        int
	file        string
	replay      string
	realtime    bool
	record      string
	compression string
	staleAfter  time.Duration
	json        bool
	tui         bool
	noColor     bool
}

func run() error {
	var flags options
	flagSet := pflag.NewFlagSet("xyv-monitor", pflag.ContinueOnError)
	flagSet.StringVar(&flags.configPath, "config", "", "config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&flags.port, "port", "", "serial device to read frames from")
	flagSet.IntVar(&flags.baud, "baud", serialport.DefaultBaud, "link speed for --port")
	flagSet.StringVar(&flags.file, "file", "", "read frames from a file instead of stdin")
	flagSet.StringVar(&flags.replay, "replay", "", "read frames from a capture file")
	flagSet.BoolVar(&flags.realtime, "realtime", false, "with --replay, keep the original spacing between frames")
	flagSet.StringVar(&flags.record, "record", "", "write received frames to a capture file")
	flagSet.StringVar(&flags.compression, "compression", "", "capture compression: none, lz4, zstd")
	flagSet.DurationVar(&flags.staleAfter, "stale-after", 0, "report the link stale after this long without a frame")
	flagSet.BoolVar(&flags.json, "json", false, "echo frames as JSON lines")
	flagSet.BoolVar(&flags.tui, "tui", false, "show a live dashboard")
	flagSet.BoolVar(&flags.noColor, "no-color", os.Getenv("NO_COLOR") != "", "draw the dashboard without colors (default: set when $NO_COLOR is)")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("xyv-monitor")
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
	if err := flags.check(); err != nil {
		return err
	}

	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("port") {
		cfg.Serial.Device = flags.port
	}
	if flagSet.Changed("baud") {
		cfg.Serial.Baud = flags.baud
	}
	if flagSet.Changed("record") {
		cfg.Monitor.Record = flags.record
	}
	if flagSet.Changed("compression") {
		cfg.Monitor.Compression = flags.compression
	}
	if flagSet.Changed("stale-after") {
		cfg.Monitor.StaleAfter = flags.staleAfter
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(flags.tui)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	decoder := hostlink.NewDecoder(cfg.Telemetry.ConsoleKey)
	src, title, closeSource, err := openSource(flags, cfg, decoder, clk)
	if err != nil {
		return err
	}
	defer closeSource()

	board := hostlink.NewBoard(cfg.Telemetry.ConsoleKey, cfg.Monitor.StaleAfter, cfg.Monitor.ConsoleLines)
	m := &monitor{board: board, consoleKey: cfg.Telemetry.ConsoleKey, logger: logger}
	if flags.json {
		m.echo = os.Stdout
	} else if !flags.tui {
		m.text = os.Stdout
	}

	if cfg.Monitor.Record != "" && flags.replay == "" {
		recorder, closeRecorder, err := openRecorder(cfg.Monitor, title, clk)
		if err != nil {
			return err
		}
		m.recorder = recorder
		defer func() {
			m.detachRecorder()
			if err := closeRecorder(); err != nil {
				logger.Error("closing capture", "path", cfg.Monitor.Record, "error", err)
			}
		}()
	}

	if !flags.tui {
		// A blocked read cannot be interrupted, so an interrupt
		// abandons the pump instead of waiting for it.
		done := make(chan error, 1)
		go func() { done <- m.pump(ctx, src) }()
		select {
		case err := <-done:
			if err != nil {
				return err
			}
		case <-ctx.Done():
		}
		snapshot := board.Snapshot()
		logger.Info("input ended",
			"frames", snapshot.Frames,
			"heartbeats", snapshot.Heartbeats,
			"restarts", snapshot.Restarts,
			"malformed", snapshot.Malformed,
		)
		return nil
	}

	renderer := newRenderer(os.Stdout, !flags.noColor)
	model := newDashboard(board, clk, renderer, title, flags.replay != "")
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	go func() {
		program.Send(sourceDoneMsg{err: m.pump(ctx, src)})
	}()
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (o options) check() error {
	inputs := 0
	for _, set := range []bool{o.port != "", o.file != "", o.replay != ""} {
		if set {
			inputs++
		}
	}
	if inputs > 1 {
		return errors.New("--port, --file, and --replay are mutually exclusive")
	}
	if o.json && o.tui {
		return errors.New("--json and --tui are mutually exclusive")
	}
	if o.replay != "" && o.record != "" {
		return errors.New("--record cannot be used with --replay")
	}
	if o.realtime && o.replay == "" {
		return errors.New("--realtime requires --replay")
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// newLogger builds the operational logger. The dashboard owns the
// terminal, so under --tui nothing is logged.
func newLogger(tui bool) *slog.Logger {
	if tui {
		return slog.New(slog.DiscardHandler)
	}
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, options))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, options))
}

// openSource returns the input selected by flags, a name for it, and a
// function that releases it.
func openSource(flags options, cfg *config.Config, decoder *hostlink.Decoder, clk clock.Clock) (source, string, func(), error) {
	if flags.replay != "" {
		file, err := os.Open(flags.replay)
		if err != nil {
			return nil, "", nil, err
		}
		reader, err := capture.NewReader(file)
		if err != nil {
			file.Close()
			return nil, "", nil, fmt.Errorf("%s: %w", flags.replay, err)
		}
		title := flags.replay
		if origin := reader.Header().Source; origin != "" {
			title = fmt.Sprintf("%s (%s)", flags.replay, origin)
		}
		src := &replaySource{reader: reader, decoder: decoder, clock: clk, realtime: flags.realtime}
		return src, title, func() { reader.Close(); file.Close() }, nil
	}

	maxFrame := cfg.Serial.BufferSize
	stream := func(r io.Reader) source {
		return &streamSource{
			reader: hostlink.NewReader(r, decoder, cfg.Telemetry.Delimiter, maxFrame),
			clock:  clk,
		}
	}

	switch {
	case flags.file != "":
		file, err := os.Open(flags.file)
		if err != nil {
			return nil, "", nil, err
		}
		return stream(file), flags.file, func() { file.Close() }, nil
	case cfg.Serial.Device != "":
		port, err := serialport.Open(cfg.Serial.Device, serialport.Options{Baud: cfg.Serial.Baud, BufferSize: cfg.Serial.BufferSize})
		if err != nil {
			return nil, "", nil, err
		}
		return stream(port), cfg.Serial.Device, func() { port.Close() }, nil
	default:
		return stream(os.Stdin), "stdin", func() {}, nil
	}
}

// openRecorder creates the capture file named in cfg. The returned
// function flushes the capture and closes the file.
func openRecorder(cfg config.MonitorConfig, sourceName string, clk clock.Clock) (*capture.Writer, func() error, error) {
	file, err := os.Create(cfg.Record)
	if err != nil {
		return nil, nil, err
	}
	writer, err := capture.NewWriter(file, capture.WriterOptions{
		Compression: capture.Compression(cfg.Compression),
		Source:      sourceName,
		StartedAt:   clk.Now(),
	})
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("%s: %w", cfg.Record, err)
	}
	return writer, func() error {
		return errors.Join(writer.Close(), file.Close())
	}, nil
}
