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

// Package stream provides a transport over any io.Reader, such as a captured
// bus dump, a pipe, or a TCP serial bridge
package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	ecp "github.com/ZaparooProject/go-ecp"
)

// deadliner is implemented by net.Conn and *os.File
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Transport implements ecp.Transport over an io.Reader
type Transport struct {
	reader  *bufio.Reader
	src     io.Reader
	name    string
	timeout time.Duration
	mu      sync.Mutex
	closed  bool
}

// New wraps r. If r is an io.Closer it is closed by Close.
func New(r io.Reader, name string) *Transport {
	return &Transport{
		reader: bufio.NewReader(r),
		src:    r,
		name:   name,
	}
}

// Open opens a capture file for replay
func Open(path string) (*Transport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture %s: %w", path, err)
	}
	return New(f, path), nil
}

// Dial connects to a TCP serial bridge that forwards the raw bus bytes
func Dial(address string, timeout time.Duration) (*Transport, error) {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	return New(conn, address), nil
}

// ReadBytes blocks until exactly n bytes have been read. End of input before
// n bytes is a short read.
func (t *Transport) ReadBytes(n int) ([]byte, error) {
	if !t.IsConnected() {
		return nil, ecp.NewClosedError("ReadBytes", t.name)
	}

	if err := t.armDeadline(); err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	got, err := io.ReadFull(t.reader, buf)
	if err == nil {
		return buf, nil
	}

	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout(), errors.Is(err, os.ErrDeadlineExceeded):
		return nil, ecp.NewTimeoutError("ReadBytes", t.name)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return nil, ecp.NewShortReadError("ReadBytes", t.name, got, n)
	case !t.IsConnected():
		return nil, ecp.NewClosedError("ReadBytes", t.name)
	default:
		return nil, ecp.NewTransportError("ReadBytes", t.name,
			fmt.Errorf("%w: %w", ecp.ErrTransportRead, err), ecp.ErrorTypeTransient)
	}
}

// SetTimeout sets the per-call read timeout. It only takes effect when the
// underlying reader supports read deadlines.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return fmt.Errorf("%w: negative timeout %s", ecp.ErrInvalidParameter, timeout)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close closes the underlying reader if it is closable
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	if c, ok := t.src.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", t.name, err)
		}
	}
	return nil
}

// IsConnected returns true until Close is called
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// Type returns the transport type
func (*Transport) Type() ecp.TransportType {
	return ecp.TransportStream
}

func (t *Transport) armDeadline() error {
	t.mu.Lock()
	timeout := t.timeout
	t.mu.Unlock()

	d, ok := t.src.(deadliner)
	if !ok {
		return nil
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := d.SetReadDeadline(deadline); err != nil && !errors.Is(err, os.ErrNoDeadline) {
		return fmt.Errorf("failed to set read deadline on %s: %w", t.name, err)
	}
	return nil
}

// Ensure Transport implements ecp.Transport
var _ ecp.Transport = (*Transport)(nil)
