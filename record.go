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
	"fmt"

	"github.com/ZaparooProject/go-ecp/internal/frame"
)

// FrameType identifies the kind of frame announced by a tag byte
type FrameType int

const (
	// FrameUnknown is any tag byte that is not a supported frame type
	FrameUnknown FrameType = iota
	// FrameDisplayMessage is the F7 keypad display message
	FrameDisplayMessage
	// FrameStatusChange is the F2 panel status change
	FrameStatusChange
)

// FrameTypeFromTag classifies a tag byte
func FrameTypeFromTag(tag byte) FrameType {
	switch tag {
	case frame.TagDisplayMessage:
		return FrameDisplayMessage
	case frame.TagStatusChange:
		return FrameStatusChange
	default:
		return FrameUnknown
	}
}

// String returns a short name for the frame type
func (t FrameType) String() string {
	switch t {
	case FrameDisplayMessage:
		return "display"
	case FrameStatusChange:
		return "status"
	default:
		return "unknown"
	}
}

// Record is the result of reading one frame. It is one of *DisplayMessage,
// *StatusChange or *NoRecord.
type Record interface {
	// FrameType returns the type of frame the record was decoded from
	FrameType() FrameType
	// RawData returns the consumed frame bytes, tag included, when raw data
	// was requested, and nil otherwise
	RawData() []byte

	isRecord()
}

// DisplayMessage is a decoded F7 keypad display message
type DisplayMessage struct {
	Text    string
	Raw     []byte
	Address uint8
	// Beep is bit 0x80 of byte 6. Byte 6 carries the beep count in its low
	// bits (frame.MaskBeep); this field keeps the historical bit so
	// consumers relying on it see the same values.
	Beep       bool
	ArmedStay  bool
	LowBattery bool
	Ready      bool
	ChimeMode  bool
	Bypass     bool
	ACPower    bool
	ArmedAway  bool
}

// FrameType implements Record
func (*DisplayMessage) FrameType() FrameType { return FrameDisplayMessage }

// RawData implements Record
func (m *DisplayMessage) RawData() []byte { return m.Raw }

func (*DisplayMessage) isRecord() {}

// String returns the display text with its address
func (m *DisplayMessage) String() string {
	return fmt.Sprintf("[%02d] %s", m.Address, m.Text)
}

// StatusChange is a decoded F2 panel status change
type StatusChange struct {
	Raw   []byte
	Armed bool
	Alarm bool
}

// FrameType implements Record
func (*StatusChange) FrameType() FrameType { return FrameStatusChange }

// RawData implements Record
func (s *StatusChange) RawData() []byte { return s.Raw }

func (*StatusChange) isRecord() {}

// String returns the status flags
func (s *StatusChange) String() string {
	return fmt.Sprintf("armed=%t alarm=%t", s.Armed, s.Alarm)
}

// SkipReason explains why a frame produced no record
type SkipReason int

const (
	// SkipUnrecognized means the tag byte matched no known frame type
	SkipUnrecognized SkipReason = iota
	// SkipShortStatus means an F2 frame declared fewer than 19 bytes
	SkipShortStatus
	// SkipFieldOutOfRange means an F2 frame was too short to reach the alarm byte
	SkipFieldOutOfRange
	// SkipFrameTooLarge means an F2 frame exceeded the configured maximum
	// length and was drained without decoding
	SkipFrameTooLarge
)

// String returns a short description of the reason
func (r SkipReason) String() string {
	switch r {
	case SkipUnrecognized:
		return "unrecognized frame type"
	case SkipShortStatus:
		return "short status frame"
	case SkipFieldOutOfRange:
		return "field out of range"
	case SkipFrameTooLarge:
		return "frame too large"
	default:
		return fmt.Sprintf("SkipReason(%d)", int(r))
	}
}

// NoRecord is returned for frames that carry no actionable fields. The frame
// has been fully consumed; Length is the number of bytes read for it.
type NoRecord struct {
	Tag    byte
	Reason SkipReason
	Length int
}

// FrameType implements Record
func (n *NoRecord) FrameType() FrameType { return FrameTypeFromTag(n.Tag) }

// RawData implements Record. A NoRecord never carries raw data.
func (*NoRecord) RawData() []byte { return nil }

func (*NoRecord) isRecord() {}

// String describes the skipped frame
func (n *NoRecord) String() string {
	return fmt.Sprintf("no record (tag %02X, %s, %d bytes)", n.Tag, n.Reason, n.Length)
}
