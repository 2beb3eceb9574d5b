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

package ecp

import (
	"time"
)

// ByteSource is an ordered, blocking sequence of bytes.
//
// ReadBytes blocks until exactly n bytes are available and returns them, or
// fails. Returning fewer than n bytes without an error breaks framing, so
// implementations must report a short read as an error.
type ByteSource interface {
	ReadBytes(n int) ([]byte, error)
}

// Transport is a ByteSource with an explicit lifetime. The caller that opens
// a Transport owns it and must Close it; nothing in this package closes a
// transport it was handed.
type Transport interface {
	ByteSource

	// Close closes the transport connection
	Close() error

	// SetTimeout sets the read timeout for the transport. Zero blocks forever.
	SetTimeout(timeout time.Duration) error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents a serial line attached to the keypad bus.
	TransportUART TransportType = "uart"
	// TransportStream represents any io.Reader, such as a capture file or socket.
	TransportStream TransportType = "stream"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)
