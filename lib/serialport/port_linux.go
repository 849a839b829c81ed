// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package serialport

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

var baudRates = map[int]uint32{
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	921600:  unix.B921600,
	1000000: unix.B1000000,
}

// Port is an open serial device.
type Port struct {
	file       *os.File
	fd         int
	saved      *term.State
	bufferSize int
}

// Open opens path in raw mode at options.Baud. Close restores the
// terminal settings found at open.
func Open(path string, options Options) (*Port, error) {
	options.setDefaults()
	rate, ok := baudRates[options.Baud]
	if !ok {
		return nil, fmt.Errorf("unsupported baud rate %d", options.Baud)
	}

	file, err := os.OpenFile(path, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, err
	}
	fd := int(file.Fd())

	saved, err := term.MakeRaw(fd)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: raw mode: %w", path, err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err == nil {
		termios.Cflag &^= unix.CBAUD
		termios.Cflag |= rate | unix.CLOCAL | unix.CREAD
		termios.Ispeed = rate
		termios.Ospeed = rate
		err = unix.IoctlSetTermios(fd, unix.TCSETS, termios)
	}
	if err != nil {
		term.Restore(fd, saved)
		file.Close()
		return nil, fmt.Errorf("%s: setting %d baud: %w", path, options.Baud, err)
	}

	return &Port{file: file, fd: fd, saved: saved, bufferSize: options.BufferSize}, nil
}

// Write blocks until all of p is handed to the driver.
func (p *Port) Write(b []byte) (int, error) { return p.file.Write(b) }

// Read reads from the device, for host-side use.
func (p *Port) Read(b []byte) (int, error) { return p.file.Read(b) }

// Available is the nominal buffer size minus what the driver has not
// yet put on the wire.
func (p *Port) Available() (int, error) {
	queued, err := unix.IoctlGetInt(p.fd, unix.TIOCOUTQ)
	if err != nil {
		return 0, fmt.Errorf("TIOCOUTQ: %w", err)
	}
	return max(p.bufferSize-queued, 0), nil
}

// MaxFrameSize is the nominal buffer size.
func (p *Port) MaxFrameSize() int { return p.bufferSize }

// Close restores the terminal settings and closes the device.
func (p *Port) Close() error {
	restoreErr := term.Restore(p.fd, p.saved)
	if err := p.file.Close(); err != nil {
		return err
	}
	return restoreErr
}
