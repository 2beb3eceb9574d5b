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

// Package frame provides frame layout and protocol constants for the ECP keypad bus
package frame

// Frame tag bytes - the first byte of every frame identifies its type
const (
	TagDisplayMessage = 0xF7 // Keypad display message (F7)
	TagStatusChange   = 0xF2 // Panel status change (F2)
)

// Frame size limits
const (
	DisplayMessageLength = 44  // Tag + 43 bytes, fixed
	StatusHeaderLength   = 2   // Tag + length byte
	MaxStatusLength      = 257 // Largest frame a one-byte length can declare
	DefaultMaxLength     = 64  // Default allocation bound for F2 frames
)

// Display message (F7) byte offsets
const (
	DisplayAddressOffset = 3
	DisplayBeepOffset    = 6
	DisplayStatus1Offset = 7
	DisplayStatus2Offset = 8
	DisplayTextOffset    = 12
	DisplayTextLength    = 32
)

// Display message (F7) bit masks
//
// MaskBeep documents the beep bits but is not what the decoder applies to
// byte 6; see ecp.DisplayMessage.Beep.
const (
	MaskBeep       = 0x07
	MaskArmedStay  = 0x80
	MaskLowBattery = 0x40
	MaskReady      = 0x10
	MaskChimeMode  = 0x20
	MaskBypass     = 0x10
	MaskACPower    = 0x08
	MaskArmedAway  = 0x04
)

// Status change (F2) offsets and values
const (
	StatusLengthOffset = 1
	StatusMinLength    = 19 // Shorter frames carry no fields of interest
	StatusArmedOffset  = 19
	StatusAlarmOffset  = 22
	StatusArmedValue   = 0x02
	StatusAlarmValue   = 0x04
)
