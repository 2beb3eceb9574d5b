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
	"go.uber.org/zap"
)

// decodeDisplayMessage reads the remaining 43 bytes of an F7 frame. The frame
// has a fixed length and is always read in full.
func (r *Reader) decodeDisplayMessage(tag byte, includeRaw bool) (Record, error) {
	rest, err := r.readExact(frame.DisplayMessageLength - 1)
	if err != nil {
		return nil, fmt.Errorf("read %s frame: %w", FrameDisplayMessage, err)
	}

	buf := make([]byte, frame.DisplayMessageLength)
	buf[0] = tag
	copy(buf[1:], rest)

	msg := parseDisplayMessage(buf)
	if includeRaw {
		msg.Raw = buf
	}
	r.log().Debug("display message",
		zap.Uint8("address", msg.Address), zap.String("text", msg.Text))
	return msg, nil
}

// parseDisplayMessage projects a full 44-byte F7 buffer into its fields
func parseDisplayMessage(buf []byte) *DisplayMessage {
	textEnd := frame.DisplayTextOffset + frame.DisplayTextLength
	return &DisplayMessage{
		Address: buf[frame.DisplayAddressOffset],
		// Beep tests byte 6 against the armed-stay mask, not MaskBeep.
		// Consumers depend on this reading.
		Beep:       frame.HasBits(buf, frame.DisplayBeepOffset, frame.MaskArmedStay),
		ArmedStay:  frame.HasBits(buf, frame.DisplayStatus1Offset, frame.MaskArmedStay),
		LowBattery: frame.HasBits(buf, frame.DisplayStatus1Offset, frame.MaskLowBattery),
		Ready:      frame.HasBits(buf, frame.DisplayStatus1Offset, frame.MaskReady),
		ChimeMode:  frame.HasBits(buf, frame.DisplayStatus2Offset, frame.MaskChimeMode),
		Bypass:     frame.HasBits(buf, frame.DisplayStatus2Offset, frame.MaskBypass),
		ACPower:    frame.HasBits(buf, frame.DisplayStatus2Offset, frame.MaskACPower),
		ArmedAway:  frame.HasBits(buf, frame.DisplayStatus2Offset, frame.MaskArmedAway),
		Text:       frame.Latin1(buf[frame.DisplayTextOffset:textEnd]),
	}
}
