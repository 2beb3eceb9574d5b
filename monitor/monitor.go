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

// Package monitor runs a continuous frame read loop over an ECP transport
// and reports decoded records and panel state changes through callbacks
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	ecp "github.com/ZaparooProject/go-ecp"
	"github.com/ZaparooProject/go-ecp/internal/frame"
	itransport "github.com/ZaparooProject/go-ecp/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config contains configuration options for a Monitor
type Config struct {
	// Logger receives monitor and decoder logs; nil uses the ecp package logger
	Logger *zap.Logger
	// MaxFrameLength is passed to ecp.WithMaxFrameLength
	MaxFrameLength int
	// ReconnectDelay is the pause between attempts to reopen the transport
	ReconnectDelay time.Duration
	// MaxReconnects bounds reopen attempts after a read failure. Zero stops
	// on the first failure; negative retries until the context is done.
	MaxReconnects int
	// SkipWarnRate caps the warnings logged for skipped frames, per second.
	// Every skipped frame is still logged at debug level.
	SkipWarnRate float64
	// SkipWarnBurst is the number of warnings allowed at once; zero
	// disables the warnings
	SkipWarnBurst int
	// IncludeRawData attaches raw frame bytes to decoded records
	IncludeRawData bool
}

// DefaultConfig returns default monitor configuration
func DefaultConfig() *Config {
	return &Config{
		MaxFrameLength: frame.DefaultMaxLength,
		ReconnectDelay: 2 * time.Second,
		MaxReconnects:  -1,
		SkipWarnRate:   1,
		SkipWarnBurst:  5,
	}
}

// TransportFactory opens a new transport. The monitor owns every transport
// it opens and closes it when Run returns.
type TransportFactory func() (ecp.Transport, error)

// Monitor reads frames continuously and tracks the panel state.
//
// Callbacks run on the goroutine that called Run, between frame reads.
type Monitor struct {
	factory          TransportFactory
	config           *Config
	transport        ecp.Transport
	reader           *ecp.Reader
	skipWarn         *rate.Limiter
	OnDisplayMessage func(msg *ecp.DisplayMessage) error
	OnStatusChange   func(status *ecp.StatusChange) error
	OnStateChanged   func(prev, curr PanelState)
	OnSkipped        func(rec *ecp.NoRecord)
	now              func() time.Time
	stats            Stats
	state            PanelState
	mu               sync.Mutex
	closed           bool
}

// New creates a new monitor
func New(factory TransportFactory, config *Config) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Monitor{
		factory:  factory,
		config:   config,
		skipWarn: rate.NewLimiter(rate.Limit(config.SkipWarnRate), config.SkipWarnBurst),
		now:      time.Now,
		stats:    Stats{Skipped: make(map[ecp.SkipReason]int)},
	}
}

// Run opens the transport and reads frames until ctx is done, Close is
// called, or the transport fails beyond the reconnect policy. The context is
// checked only between frames; a frame in progress is always read to its end.
func (m *Monitor) Run(ctx context.Context) error {
	if m.factory == nil {
		return fmt.Errorf("%w: nil transport factory", ecp.ErrInvalidParameter)
	}
	defer m.closeTransport()

	if err := m.connect(ctx, m.config.MaxReconnects); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := m.currentReader().ReadFrame()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err := m.handleReadError(ctx, err); err != nil {
				return err
			}
			continue
		}

		m.processRecord(rec)
	}
}

// State returns the current panel state
func (m *Monitor) State() PanelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns a snapshot of the frame counters
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.clone()
}

// Close stops the monitor and closes its transport. A read blocked in Run
// returns once the transport is closed. Safe to call from any goroutine.
func (m *Monitor) Close() error {
	m.mu.Lock()
	m.closed = true
	t := m.transport
	m.mu.Unlock()

	if t == nil {
		return nil
	}
	if err := t.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

func (m *Monitor) logger() *zap.Logger {
	if m.config.Logger != nil {
		return m.config.Logger
	}
	return ecp.Logger()
}

func (m *Monitor) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Monitor) currentReader() *ecp.Reader {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reader
}

// connect opens a transport through the factory and builds its reader
func (m *Monitor) connect(ctx context.Context, maxRetries int) error {
	retry := itransport.RetryConfig{
		Description: "open transport",
		MaxRetries:  maxRetries,
		RetryDelay:  m.config.ReconnectDelay,
		OnRetry: func(attempt int, err error) {
			m.logger().Warn("transport open failed, retrying",
				zap.Int("attempt", attempt), zap.Error(err))
		},
	}
	t, err := itransport.Reopen(ctx, retry, m.factory)
	if err != nil {
		return fmt.Errorf("failed to open transport: %w", err)
	}

	reader, err := ecp.NewReader(t, m.readerOptions()...)
	if err != nil {
		_ = t.Close()
		return fmt.Errorf("failed to create reader: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = t.Close()
		return ecp.NewClosedError("connect", "")
	}
	m.transport = t
	m.reader = reader
	m.mu.Unlock()
	return nil
}

func (m *Monitor) readerOptions() []ecp.Option {
	opts := []ecp.Option{ecp.WithRawData(m.config.IncludeRawData)}
	if m.config.MaxFrameLength > 0 {
		opts = append(opts, ecp.WithMaxFrameLength(m.config.MaxFrameLength))
	}
	if m.config.Logger != nil {
		opts = append(opts, ecp.WithLogger(m.config.Logger))
	}
	return opts
}

func (m *Monitor) closeTransport() {
	m.mu.Lock()
	t := m.transport
	m.transport = nil
	m.mu.Unlock()

	if t != nil {
		_ = t.Close()
	}
}

// handleReadError decides whether a read failure ends Run. A timeout waiting
// for a tag is an idle line and is ignored. Any other failure, a timeout
// inside a frame included, reopens the transport when allowed so reading
// restarts on a frame boundary.
func (m *Monitor) handleReadError(ctx context.Context, err error) error {
	m.mu.Lock()
	m.stats.ReadErrors++
	m.mu.Unlock()

	if m.isClosed() {
		return fmt.Errorf("monitor closed: %w", err)
	}

	truncated := errors.Is(err, ecp.ErrFrameTruncated)
	if !truncated && ecp.GetErrorType(err) == ecp.ErrorTypeTimeout {
		m.logger().Debug("read timed out", zap.Error(err))
		return nil
	}

	if m.config.MaxReconnects == 0 || !ecp.IsRetryable(err) {
		return fmt.Errorf("read frame: %w", err)
	}

	m.logger().Warn("transport read failed, reconnecting",
		zap.Bool("truncated", truncated), zap.Error(err))
	m.closeTransport()
	m.transitionToUnknown()

	if err := m.connect(ctx, m.config.MaxReconnects); err != nil {
		return err
	}

	m.mu.Lock()
	m.stats.Reconnects++
	m.mu.Unlock()
	return nil
}

// processRecord updates counters and state, then runs callbacks
func (m *Monitor) processRecord(rec ecp.Record) {
	switch r := rec.(type) {
	case *ecp.DisplayMessage:
		prev, curr := m.updateState(func(s *PanelState, now time.Time) {
			s.applyDisplay(r, now)
		}, func(st *Stats) { st.DisplayMessages++ })
		if m.OnDisplayMessage != nil {
			m.logCallbackError("display", m.OnDisplayMessage(r))
		}
		m.notifyStateChange(prev, curr)

	case *ecp.StatusChange:
		prev, curr := m.updateState(func(s *PanelState, now time.Time) {
			s.applyStatus(r, now)
		}, func(st *Stats) { st.StatusChanges++ })
		if m.OnStatusChange != nil {
			m.logCallbackError("status", m.OnStatusChange(r))
		}
		m.notifyStateChange(prev, curr)

	case *ecp.NoRecord:
		m.mu.Lock()
		m.stats.Skipped[r.Reason]++
		m.mu.Unlock()
		m.logSkipped(r)
		if m.OnSkipped != nil {
			m.OnSkipped(r)
		}
	}
}

// logSkipped warns about skipped frames at a bounded rate so line noise
// does not flood the log
func (m *Monitor) logSkipped(rec *ecp.NoRecord) {
	fields := []zap.Field{
		zap.String("tag", fmt.Sprintf("%02X", rec.Tag)),
		zap.Stringer("reason", rec.Reason),
		zap.Int("length", rec.Length),
	}
	if m.skipWarn.Allow() {
		m.logger().Warn("skipped frame", fields...)
		return
	}
	m.logger().Debug("skipped frame", fields...)
}

func (m *Monitor) updateState(apply func(*PanelState, time.Time), count func(*Stats)) (prev, curr PanelState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev = m.state
	apply(&m.state, m.now())
	count(&m.stats)
	return prev, m.state
}

func (m *Monitor) notifyStateChange(prev, curr PanelState) {
	if prev.SameFlags(curr) || m.OnStateChanged == nil {
		return
	}
	m.OnStateChanged(prev, curr)
}

// transitionToUnknown forgets the panel state after the transport is lost
func (m *Monitor) transitionToUnknown() {
	m.mu.Lock()
	prev := m.state
	m.state.reset()
	curr := m.state
	m.mu.Unlock()
	m.notifyStateChange(prev, curr)
}

// logCallbackError logs a callback failure; callbacks cannot stop the loop
func (m *Monitor) logCallbackError(name string, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		m.logger().Warn("callback failed", zap.String("callback", name), zap.Error(err))
	}
}
