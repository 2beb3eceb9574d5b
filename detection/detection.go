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

// Package detection lists serial ports that may be attached to an ECP
// keypad bus
package detection

import (
	"fmt"
	"sort"
	"strings"

	ecp "github.com/ZaparooProject/go-ecp"
	"go.bug.st/serial/enumerator"
)

// PortInfo describes a candidate serial port
type PortInfo struct {
	Path         string
	VIDPID       string
	Product      string
	SerialNumber string
	IsUSB        bool
}

// String returns a one-line description of the port
func (p PortInfo) String() string {
	if !p.IsUSB {
		return p.Path
	}
	desc := p.Path + " [" + p.VIDPID + "]"
	if p.Product != "" {
		desc += " " + p.Product
	}
	return desc
}

// Options controls port detection
type Options struct {
	// Blocklist holds VID:PID pairs to skip
	Blocklist []string
	// IgnorePaths holds device paths to skip
	IgnorePaths []string
	// USBOnly skips on-board UARTs such as /dev/serial0
	USBOnly bool
}

// DefaultOptions returns default detection options. On-board UARTs are
// included since the bus is often wired to a Raspberry Pi GPIO UART.
func DefaultOptions() Options {
	return Options{
		Blocklist: DefaultBlocklist(),
	}
}

// listPorts is replaced in tests
var listPorts = enumerator.GetDetailedPortsList

// DetectSerialPorts returns the serial ports that pass the filters in opts,
// USB adapters first, each group sorted by path
func DetectSerialPorts(opts Options) ([]PortInfo, error) {
	details, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var ports []PortInfo
	for _, d := range details {
		if d == nil {
			continue
		}
		port := PortInfo{
			Path:         d.Name,
			IsUSB:        d.IsUSB,
			Product:      strings.TrimSpace(d.Product),
			SerialNumber: d.SerialNumber,
		}
		if d.IsUSB {
			port.VIDPID = FormatVIDPID(d.VID, d.PID)
		}

		switch {
		case opts.USBOnly && !port.IsUSB:
			ecp.Logger().Sugar().Debugf("skipping non-USB port %s", port.Path)
			continue
		case IsBlocked(port.VIDPID, opts.Blocklist):
			ecp.Logger().Sugar().Debugf("skipping blocklisted port %s", port)
			continue
		case IsPathIgnored(port.Path, opts.IgnorePaths):
			continue
		}
		ports = append(ports, port)
	}

	sort.SliceStable(ports, func(i, j int) bool {
		if ports[i].IsUSB != ports[j].IsUSB {
			return ports[i].IsUSB
		}
		return ports[i].Path < ports[j].Path
	})
	return ports, nil
}

// FirstPort returns the first detected port
func FirstPort(opts Options) (PortInfo, error) {
	ports, err := DetectSerialPorts(opts)
	if err != nil {
		return PortInfo{}, err
	}
	if len(ports) == 0 {
		return PortInfo{}, fmt.Errorf("%w: no serial ports available", ecp.ErrDeviceNotFound)
	}
	return ports[0], nil
}
