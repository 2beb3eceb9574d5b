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

package monitor

import (
	"time"

	ecp "github.com/ZaparooProject/go-ecp"
)

// PanelState is the last known state of the alarm panel, merged from
// display messages and status changes
type PanelState struct {
	LastUpdate time.Time
	Text       string
	Address    uint8
	Ready      bool
	ArmedStay  bool
	ArmedAway  bool
	Armed      bool
	Alarm      bool
	ACPower    bool
	LowBattery bool
	ChimeMode  bool
	Bypass     bool
	Known      bool
}

// SameFlags reports whether two states have identical status flags. The
// display text, address and timestamp are not compared since keypads
// cycle through zone messages without any change in state.
func (s PanelState) SameFlags(o PanelState) bool {
	return s.Known == o.Known &&
		s.Ready == o.Ready &&
		s.ArmedStay == o.ArmedStay &&
		s.ArmedAway == o.ArmedAway &&
		s.Armed == o.Armed &&
		s.Alarm == o.Alarm &&
		s.ACPower == o.ACPower &&
		s.LowBattery == o.LowBattery &&
		s.ChimeMode == o.ChimeMode &&
		s.Bypass == o.Bypass
}

// applyDisplay folds a display message into the state
func (s *PanelState) applyDisplay(msg *ecp.DisplayMessage, now time.Time) {
	s.Known = true
	s.LastUpdate = now
	s.Text = msg.Text
	s.Address = msg.Address
	s.Ready = msg.Ready
	s.ArmedStay = msg.ArmedStay
	s.ArmedAway = msg.ArmedAway
	s.ACPower = msg.ACPower
	s.LowBattery = msg.LowBattery
	s.ChimeMode = msg.ChimeMode
	s.Bypass = msg.Bypass
}

// applyStatus folds a status change into the state
func (s *PanelState) applyStatus(st *ecp.StatusChange, now time.Time) {
	s.Known = true
	s.LastUpdate = now
	s.Armed = st.Armed
	s.Alarm = st.Alarm
}

// reset forgets everything, used after the transport is lost
func (s *PanelState) reset() {
	*s = PanelState{}
}

// Stats counts frames seen by a monitor
type Stats struct {
	Skipped         map[ecp.SkipReason]int
	DisplayMessages int
	StatusChanges   int
	ReadErrors      int
	Reconnects      int
}

func (s *Stats) clone() Stats {
	out := *s
	out.Skipped = make(map[ecp.SkipReason]int, len(s.Skipped))
	for k, v := range s.Skipped {
		out.Skipped[k] = v
	}
	return out
}
