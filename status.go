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

// decodeStatusChange reads an F2 frame: a length byte L followed by L bytes.
// The whole frame is consumed before any length policy is applied so the
// next read starts on a frame boundary.
func (r *Reader) decodeStatusChange(tag byte, includeRaw bool) (Record, error) {
	lb, err := r.readExact(1)
	if err != nil {
		return nil, fmt.Errorf("read %s frame length: %w", FrameStatusChange, err)
	}
	declared := lb[0]
	total := frame.StatusFrameLength(declared)

	if maxLen := r.maxFrameLength(); total > maxLen {
		if err := r.drain(int(declared)); err != nil {
			return nil, fmt.Errorf("drain %s frame: %w", FrameStatusChange, err)
		}
		r.log().Debug("drained oversize status frame",
			zap.Int("length", total), zap.Int("max", maxLen))
		return &NoRecord{Tag: tag, Reason: SkipFrameTooLarge, Length: total}, nil
	}

	payload, err := r.readExact(int(declared))
	if err != nil {
		return nil, fmt.Errorf("read %s frame: %w", FrameStatusChange, err)
	}
	buf := make([]byte, 0, total)
	buf = append(buf, tag, declared)
	buf = append(buf, payload...)

	if declared < frame.StatusMinLength {
		return &NoRecord{Tag: tag, Reason: SkipShortStatus, Length: total}, nil
	}

	status, ok := parseStatusChange(buf)
	if !ok {
		r.log().Debug("status frame too short for alarm field",
			zap.Int("length", total), zap.Int("offset", frame.StatusAlarmOffset))
		return &NoRecord{Tag: tag, Reason: SkipFieldOutOfRange, Length: total}, nil
	}
	if includeRaw {
		status.Raw = buf
	}
	r.log().Debug("status change",
		zap.Bool("armed", status.Armed), zap.Bool("alarm", status.Alarm))
	return status, nil
}

// parseStatusChange extracts the armed and alarm bytes. It reports false
// when either offset lies outside buf.
func parseStatusChange(buf []byte) (*StatusChange, bool) {
	armed, ok := frame.ByteEquals(buf, frame.StatusArmedOffset, frame.StatusArmedValue)
	if !ok {
		return nil, false
	}
	alarm, ok := frame.ByteEquals(buf, frame.StatusAlarmOffset, frame.StatusAlarmValue)
	if !ok {
		return nil, false
	}
	return &StatusChange{Armed: armed, Alarm: alarm}, true
}
