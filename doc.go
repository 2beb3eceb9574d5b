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

/*
Package ecp decodes frames read from a Honeywell ECP keypad bus.

The ECP bus links an alarm panel to its keypads. Two frame types are decoded:
F7 display frames, which carry the 32 characters shown on the keypad along
with the ready, armed and power flags, and F2 status frames, which carry the
armed and alarm state. Every other byte at a frame boundary is reported as
a NoRecord and consumed on its own.

Features:
  - Exact consumption: each frame type reads precisely its own length, so
    the stream stays aligned on frame boundaries
  - Typed records through a sealed Record interface
  - Serial (4800 8N2) and io.Reader based byte sources
  - Bounded allocation for oversize status frames
  - Serial port detection and a reconnecting monitor loop

Basic Usage:

	import (
	    ecp "github.com/ZaparooProject/go-ecp"
	    "github.com/ZaparooProject/go-ecp/transport/uart"
	)

	transport, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}
	defer transport.Close()

	reader, err := ecp.NewReader(transport, ecp.WithRawData(true))
	if err != nil {
	    log.Fatal(err)
	}

	for {
	    rec, err := reader.ReadFrame()
	    if err != nil {
	        log.Fatal(err)
	    }
	    switch r := rec.(type) {
	    case *ecp.DisplayMessage:
	        fmt.Println(r.Text)
	    case *ecp.StatusChange:
	        fmt.Println(r)
	    case *ecp.NoRecord:
	        // stray byte or unusable frame
	    }
	}

The package level ReadFrame decodes one frame from any ByteSource using the
default configuration.

Error Handling:

Only byte source failures are returned as errors. They wrap the source error,
so the transport sentinels can be inspected:

	if errors.Is(err, ecp.ErrTransportTimeout) {
	    // no frame arrived in time
	}
	if ecp.IsRetryable(err) {
	    // reopen the transport
	}

A failure after the tag byte also wraps ErrFrameTruncated. The source is then
in the middle of a frame and should be reopened or flushed before reading on.

Unknown tags, short status frames and oversize frames are not errors; they
yield a *NoRecord carrying a SkipReason.

Thread Safety:

A Reader is not safe for concurrent use. Reads block until the whole frame
has arrived; the caller owns the transport and closes it to stop a read.
*/
package ecp
