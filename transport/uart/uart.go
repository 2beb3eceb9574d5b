// go-ecp
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-ecp.
//
// go-ecp is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-ecp is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-ecp; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package uart provides the serial line transport for the ECP keypad bus
package uart

import (
	"errors"
	"fmt"
	"sync"
	"time"

	ecp "github.com/ZaparooProject/go-ecp"
	"go.bug.st/serial"
)

// ECP keypad bus line settings
const (
	DefaultBaudRate = 4800
	DefaultDataBits = 8
)

// Option configures a Transport before the port is opened
type Option func(*serial.Mode, *time.Duration)

// WithBaudRate overrides the line speed
func WithBaudRate(baud int) Option {
	return func(m *serial.Mode, _ *time.Duration) {
		m.BaudRate = baud
	}
}

// WithReadTimeout bounds how long ReadBytes waits for the next byte.
// Zero, the default, waits forever.
func WithReadTimeout(timeout time.Duration) Option {
	return func(_ *serial.Mode, t *time.Duration) {
		*t = timeout
	}
}

// DefaultMode returns the ECP line settings: 4800 baud, 8 data bits,
// no parity, two stop bits
func DefaultMode() *serial.Mode {
	return &serial.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: DefaultDataBits,
		Parity:   serial.NoParity,
		StopBits: serial.TwoStopBits,
	}
}

// Transport implements ecp.Transport over a serial port
type Transport struct {
	port     serial.Port
	portName string
	timeout  time.Duration
	mu       sync.Mutex
}

// New opens portName with the ECP line settings
func New(portName string, opts ...Option) (*Transport, error) {
	mode := DefaultMode()
	var timeout time.Duration
	for _, opt := range opts {
		opt(mode, &timeout)
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	t := NewWithPort(port, portName)
	if err := t.SetTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, err
	}

	// Drop whatever the adapter buffered before we attached
	_ = port.ResetInputBuffer()

	return t, nil
}

// NewWithPort wraps an already opened port
func NewWithPort(port serial.Port, portName string) *Transport {
	return &Transport{
		port:     port,
		portName: portName,
	}
}

// ReadBytes blocks until exactly n bytes have been read from the port
func (t *Transport) ReadBytes(n int) ([]byte, error) {
	port := t.currentPort()
	if port == nil {
		return nil, ecp.NewClosedError("ReadBytes", t.portName)
	}

	buf := make([]byte, n)
	read := 0
	for read < n {
		k, err := port.Read(buf[read:])
		if err != nil {
			return nil, t.wrapReadError(err)
		}
		if k == 0 {
			// go.bug.st/serial reports an expired read timeout as (0, nil)
			return nil, ecp.NewTimeoutError("ReadBytes", t.portName)
		}
		read += k
	}
	return buf, nil
}

// SetTimeout sets the per-read timeout. Zero blocks until data arrives.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return fmt.Errorf("%w: negative timeout %s", ecp.ErrInvalidParameter, timeout)
	}
	port := t.currentPort()
	if port == nil {
		return ecp.NewClosedError("SetTimeout", t.portName)
	}

	portTimeout := timeout
	if timeout == 0 {
		portTimeout = serial.NoTimeout
	}
	if err := port.SetReadTimeout(portTimeout); err != nil {
		return fmt.Errorf("failed to set read timeout on %s: %w", t.portName, err)
	}

	t.mu.Lock()
	t.timeout = timeout
	t.mu.Unlock()
	return nil
}

// Close closes the serial port. It is safe to call more than once and from
// another goroutine to unblock a pending read.
func (t *Transport) Close() error {
	t.mu.Lock()
	port := t.port
	t.port = nil
	t.mu.Unlock()

	if port == nil {
		return nil
	}
	if err := port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true if the port is open
func (t *Transport) IsConnected() bool {
	return t.currentPort() != nil
}

// Type returns the transport type
func (*Transport) Type() ecp.TransportType {
	return ecp.TransportUART
}

// PortName returns the device path the transport was opened on
func (t *Transport) PortName() string {
	return t.portName
}

func (t *Transport) currentPort() serial.Port {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port
}

func (t *Transport) wrapReadError(err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
		return ecp.NewClosedError("ReadBytes", t.portName)
	}
	if !t.IsConnected() {
		return ecp.NewClosedError("ReadBytes", t.portName)
	}
	return ecp.NewTransportError("ReadBytes", t.portName,
		fmt.Errorf("%w: %w", ecp.ErrTransportRead, err), ecp.ErrorTypeTransient)
}

// Ensure Transport implements ecp.Transport
var _ ecp.Transport = (*Transport)(nil)
