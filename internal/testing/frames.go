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

// Package testing builds ECP frames for tests
package testing

import (
	"github.com/ZaparooProject/go-ecp/internal/frame"
)

// DisplayFields are the inputs for BuildDisplayFrame
type DisplayFields struct {
	Text       string
	Address    byte
	BeepByte   byte
	ArmedStay  bool
	LowBattery bool
	Ready      bool
	ChimeMode  bool
	Bypass     bool
	ACPower    bool
	ArmedAway  bool
}

// BuildDisplayFrame builds a 44-byte F7 frame. Text is space padded or
// truncated to 32 bytes.
func BuildDisplayFrame(f DisplayFields) []byte {
	buf := make([]byte, frame.DisplayMessageLength)
	buf[0] = frame.TagDisplayMessage
	buf[frame.DisplayAddressOffset] = f.Address
	buf[frame.DisplayBeepOffset] = f.BeepByte

	setIf(&buf[frame.DisplayStatus1Offset], f.ArmedStay, frame.MaskArmedStay)
	setIf(&buf[frame.DisplayStatus1Offset], f.LowBattery, frame.MaskLowBattery)
	setIf(&buf[frame.DisplayStatus1Offset], f.Ready, frame.MaskReady)
	setIf(&buf[frame.DisplayStatus2Offset], f.ChimeMode, frame.MaskChimeMode)
	setIf(&buf[frame.DisplayStatus2Offset], f.Bypass, frame.MaskBypass)
	setIf(&buf[frame.DisplayStatus2Offset], f.ACPower, frame.MaskACPower)
	setIf(&buf[frame.DisplayStatus2Offset], f.ArmedAway, frame.MaskArmedAway)

	text := buf[frame.DisplayTextOffset:]
	for i := range text {
		text[i] = ' '
	}
	copy(text, f.Text)
	return buf
}

// BuildDisplayFrameRaw builds an F7 frame with explicit status bytes
func BuildDisplayFrameRaw(address, byte6, byte7, byte8 byte, text string) []byte {
	buf := BuildDisplayFrame(DisplayFields{Address: address, Text: text, BeepByte: byte6})
	buf[frame.DisplayStatus1Offset] = byte7
	buf[frame.DisplayStatus2Offset] = byte8
	return buf
}

// BuildStatusFrame builds an F2 frame with the given declared length. The
// payload is zero filled; values maps absolute frame offsets to bytes and
// entries outside the frame are ignored.
func BuildStatusFrame(declared byte, values map[int]byte) []byte {
	buf := make([]byte, frame.StatusFrameLength(declared))
	buf[0] = frame.TagStatusChange
	buf[frame.StatusLengthOffset] = declared
	for off, v := range values {
		if off >= frame.StatusHeaderLength && off < len(buf) {
			buf[off] = v
		}
	}
	return buf
}

// BuildArmedStatusFrame builds a 25-byte F2 frame carrying the armed and
// alarm bytes
func BuildArmedStatusFrame(armed, alarm bool) []byte {
	values := map[int]byte{}
	if armed {
		values[frame.StatusArmedOffset] = frame.StatusArmedValue
	}
	if alarm {
		values[frame.StatusAlarmOffset] = frame.StatusAlarmValue
	}
	return BuildStatusFrame(23, values)
}

func setIf(b *byte, cond bool, mask byte) {
	if cond {
		*b |= mask
	}
}
