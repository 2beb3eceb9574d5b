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
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	ecp "github.com/ZaparooProject/go-ecp"
	ecptest "github.com/ZaparooProject/go-ecp/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func factoryFor(transports ...ecp.Transport) (TransportFactory, *int) {
	var mu sync.Mutex
	calls := 0
	return func() (ecp.Transport, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls > len(transports) {
			return nil, ecp.NewTransportError("open", "test", ecp.ErrDeviceNotFound, ecp.ErrorTypePermanent)
		}
		return transports[calls-1], nil
	}, &calls
}

func noReconnectConfig() *Config {
	cfg := DefaultConfig()
	cfg.MaxReconnects = 0
	cfg.ReconnectDelay = 0
	return cfg
}

func TestNewMonitor(t *testing.T) {
	t.Parallel()

	t.Run("WithDefaultConfig", func(t *testing.T) {
		t.Parallel()
		m := New(nil, nil)
		require.NotNil(t, m)
		assert.Equal(t, DefaultConfig(), m.config)
		assert.False(t, m.State().Known)
		assert.Empty(t, m.Stats().Skipped)
	})

	t.Run("NilFactory", func(t *testing.T) {
		t.Parallel()
		err := New(nil, nil).Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ecp.ErrInvalidParameter)
	})
}

func TestMonitor_DispatchesRecordsAndTracksState(t *testing.T) {
	t.Parallel()

	mock := ecp.NewMockTransport(
		ecptest.BuildDisplayFrame(ecptest.DisplayFields{Address: 16, Ready: true, ACPower: true, Text: "READY TO ARM"}),
		ecptest.BuildArmedStatusFrame(true, false),
		ecptest.BuildDisplayFrame(ecptest.DisplayFields{Address: 16, Ready: true, ACPower: true, Text: "FAULT 03 BACK DOOR"}),
		[]byte{0x7E},
	)
	factory, _ := factoryFor(mock)
	m := New(factory, noReconnectConfig())

	var texts []string
	var statuses []*ecp.StatusChange
	var changes []PanelState
	var skipped []ecp.SkipReason
	m.OnDisplayMessage = func(msg *ecp.DisplayMessage) error {
		texts = append(texts, msg.Text)
		return errors.New("callback errors are logged only")
	}
	m.OnStatusChange = func(st *ecp.StatusChange) error {
		statuses = append(statuses, st)
		return nil
	}
	m.OnStateChanged = func(_, curr PanelState) { changes = append(changes, curr) }
	m.OnSkipped = func(rec *ecp.NoRecord) { skipped = append(skipped, rec.Reason) }

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ecp.ErrShortRead)

	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "READY TO ARM")
	assert.Equal(t, []*ecp.StatusChange{{Armed: true}}, statuses)
	assert.Equal(t, []ecp.SkipReason{ecp.SkipUnrecognized}, skipped)

	require.Len(t, changes, 2, "text-only changes must not be reported")
	assert.True(t, changes[0].Ready)
	assert.False(t, changes[0].Armed)
	assert.True(t, changes[1].Armed)

	state := m.State()
	assert.True(t, state.Known)
	assert.Equal(t, uint8(16), state.Address)
	assert.Contains(t, state.Text, "BACK DOOR")

	stats := m.Stats()
	assert.Equal(t, 2, stats.DisplayMessages)
	assert.Equal(t, 1, stats.StatusChanges)
	assert.Equal(t, 1, stats.ReadErrors)
	assert.Equal(t, 1, stats.Skipped[ecp.SkipUnrecognized])
	assert.False(t, mock.IsConnected(), "monitor must close the transport it opened")
}

func TestMonitor_StopsBetweenFrames(t *testing.T) {
	t.Parallel()

	mock := ecp.NewMockTransport()
	mock.SetBlockOnEmpty(true)
	factory, _ := factoryFor(mock)
	m := New(factory, noReconnectConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	frame := ecptest.BuildDisplayFrame(ecptest.DisplayFields{Text: "ARMED"})
	mock.Feed(frame[:10])
	cancel()

	select {
	case err := <-done:
		t.Fatalf("Run returned mid-frame: %v", err)
	case <-time.After(30 * time.Millisecond):
	}

	mock.Feed(frame[10:])

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after the frame completed")
	}
	assert.Equal(t, len(frame), mock.Consumed())
	assert.Equal(t, 1, m.Stats().DisplayMessages)
}

func TestMonitor_CloseUnblocksRun(t *testing.T) {
	t.Parallel()

	mock := ecp.NewMockTransport()
	mock.SetBlockOnEmpty(true)
	factory, _ := factoryFor(mock)
	m := New(factory, DefaultConfig())

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	require.Eventually(t, func() bool { return m.currentReader() != nil }, time.Second, time.Millisecond)
	require.NoError(t, m.Close())

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, ecp.ErrTransportClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestMonitor_ReconnectsAfterReadFailure(t *testing.T) {
	t.Parallel()

	first := ecp.NewMockTransport(ecptest.BuildArmedStatusFrame(true, true))
	second := ecp.NewMockTransport(ecptest.BuildDisplayFrame(ecptest.DisplayFields{Text: "DISARMED"}))
	factory, calls := factoryFor(first, second)

	cfg := DefaultConfig()
	cfg.MaxReconnects = 1
	cfg.ReconnectDelay = 0
	m := New(factory, cfg)

	var changes []PanelState
	m.OnStateChanged = func(_, curr PanelState) { changes = append(changes, curr) }

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ecp.ErrDeviceNotFound)
	assert.Equal(t, 3, *calls)

	stats := m.Stats()
	assert.Equal(t, 1, stats.StatusChanges)
	assert.Equal(t, 1, stats.DisplayMessages)
	assert.Equal(t, 1, stats.Reconnects)
	assert.Equal(t, 2, stats.ReadErrors)

	require.GreaterOrEqual(t, len(changes), 2)
	assert.True(t, changes[0].Alarm)
	assert.False(t, changes[1].Known, "state resets when the transport is lost")
	assert.False(t, first.IsConnected())
	assert.False(t, second.IsConnected())
}

func TestMonitor_IgnoresIdleTimeouts(t *testing.T) {
	t.Parallel()

	mock := ecp.NewMockTransport()
	mock.SetError(ecp.NewTimeoutError("ReadBytes", "mock"))
	mock.Feed(ecptest.BuildArmedStatusFrame(false, false))
	factory, _ := factoryFor(mock)
	m := New(factory, noReconnectConfig())

	err := m.Run(context.Background())
	require.ErrorIs(t, err, ecp.ErrShortRead)

	stats := m.Stats()
	assert.Equal(t, 2, stats.ReadErrors)
	assert.Equal(t, 1, stats.StatusChanges)
}

func TestMonitor_OpenFailure(t *testing.T) {
	t.Parallel()

	factory, calls := factoryFor()
	cfg := DefaultConfig()
	cfg.MaxReconnects = 3
	cfg.ReconnectDelay = 0

	err := New(factory, cfg).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ecp.ErrDeviceNotFound)
	assert.Equal(t, 1, *calls, "permanent open errors are not retried")
}

func TestMonitor_RawDataOption(t *testing.T) {
	t.Parallel()

	raw := ecptest.BuildArmedStatusFrame(true, false)
	factory, _ := factoryFor(ecp.NewMockTransport(raw))
	cfg := noReconnectConfig()
	cfg.IncludeRawData = true
	m := New(factory, cfg)

	var got []byte
	m.OnStatusChange = func(st *ecp.StatusChange) error {
		got = st.Raw
		return nil
	}
	_ = m.Run(context.Background())
	assert.Equal(t, raw, got)
}

func TestPanelState_SameFlags(t *testing.T) {
	t.Parallel()

	base := PanelState{Known: true, Ready: true, ACPower: true, Text: "READY", Address: 1}
	same := base
	same.Text = "FAULT 01"
	same.Address = 2
	same.LastUpdate = time.Now()
	assert.True(t, base.SameFlags(same))

	for name, mutate := range map[string]func(*PanelState){
		"known":       func(s *PanelState) { s.Known = false },
		"ready":       func(s *PanelState) { s.Ready = false },
		"armed stay":  func(s *PanelState) { s.ArmedStay = true },
		"armed away":  func(s *PanelState) { s.ArmedAway = true },
		"armed":       func(s *PanelState) { s.Armed = true },
		"alarm":       func(s *PanelState) { s.Alarm = true },
		"ac power":    func(s *PanelState) { s.ACPower = false },
		"low battery": func(s *PanelState) { s.LowBattery = true },
		"chime":       func(s *PanelState) { s.ChimeMode = true },
		"bypass":      func(s *PanelState) { s.Bypass = true },
	} {
		changed := base
		mutate(&changed)
		assert.False(t, base.SameFlags(changed), name)
	}
}

func TestMonitor_RateLimitsSkipWarnings(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	cfg := noReconnectConfig()
	cfg.Logger = zap.New(core)
	cfg.SkipWarnRate = 0
	cfg.SkipWarnBurst = 3

	noise := make([]byte, 10)
	for i := range noise {
		noise[i] = 0x55
	}
	factory, _ := factoryFor(ecp.NewMockTransport(noise))
	m := New(factory, cfg)

	err := m.Run(context.Background())
	require.ErrorIs(t, err, ecp.ErrShortRead)

	skipped := logs.FilterMessage("skipped frame")
	assert.Equal(t, 3, skipped.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 7, skipped.FilterLevelExact(zapcore.DebugLevel).Len())
	assert.Equal(t, 10, m.Stats().Skipped[ecp.SkipUnrecognized])
}

// stallingTransport times out on one ReadBytes call and serves the
// remaining bytes afterwards, like a line that pauses inside a frame
type stallingTransport struct {
	*ecp.MockTransport
	stallOn int
	calls   int
}

func (s *stallingTransport) ReadBytes(n int) ([]byte, error) {
	s.calls++
	if s.calls == s.stallOn {
		return nil, ecp.NewTimeoutError("ReadBytes", "stall")
	}
	return s.MockTransport.ReadBytes(n)
}

// displayWithStatusTag builds an F7 frame whose text starts with bytes
// that look like an F2 header
func displayWithStatusTag() []byte {
	f := ecptest.BuildDisplayFrame(ecptest.DisplayFields{Text: "FAULT"})
	f[12] = 0xF2
	f[13] = 0x30
	return f
}

func TestMonitor_TimeoutInsideFrame(t *testing.T) {
	t.Parallel()

	t.Run("fails without reconnect", func(t *testing.T) {
		t.Parallel()

		stalled := &stallingTransport{
			MockTransport: ecp.NewMockTransport(displayWithStatusTag(), ecptest.BuildArmedStatusFrame(true, true)),
			stallOn:       2,
		}
		factory, _ := factoryFor(stalled)
		m := New(factory, noReconnectConfig())

		var statuses []*ecp.StatusChange
		m.OnStatusChange = func(s *ecp.StatusChange) error {
			statuses = append(statuses, s)
			return nil
		}

		err := m.Run(context.Background())
		require.ErrorIs(t, err, ecp.ErrFrameTruncated)
		assert.ErrorIs(t, err, ecp.ErrTransportTimeout)
		assert.Empty(t, statuses)
		assert.Empty(t, m.Stats().Skipped)
	})

	t.Run("reconnects on a frame boundary", func(t *testing.T) {
		t.Parallel()

		stalled := &stallingTransport{
			MockTransport: ecp.NewMockTransport(displayWithStatusTag(), ecptest.BuildArmedStatusFrame(false, false)),
			stallOn:       2,
		}
		fresh := ecp.NewMockTransport(ecptest.BuildArmedStatusFrame(true, true))
		factory, calls := factoryFor(stalled, fresh)

		cfg := DefaultConfig()
		cfg.MaxReconnects = 1
		cfg.ReconnectDelay = 0
		m := New(factory, cfg)

		var statuses []*ecp.StatusChange
		m.OnStatusChange = func(s *ecp.StatusChange) error {
			statuses = append(statuses, s)
			return nil
		}

		err := m.Run(context.Background())
		require.ErrorIs(t, err, ecp.ErrDeviceNotFound)
		assert.Equal(t, 3, *calls)

		require.Len(t, statuses, 1)
		assert.True(t, statuses[0].Armed)
		assert.True(t, statuses[0].Alarm)

		stats := m.Stats()
		assert.Empty(t, stats.Skipped)
		assert.Equal(t, 0, stats.DisplayMessages)
		assert.Equal(t, 1, stats.Reconnects)
		assert.False(t, stalled.IsConnected())
	})
}
