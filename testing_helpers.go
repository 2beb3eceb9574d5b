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
	"sync"
	"time"
)

// MockTransport is an in-memory transport for tests. It serves bytes that
// were fed to it, records every read, and can inject errors or block until
// more bytes arrive.
type MockTransport struct {
	readErr      error
	wake         chan struct{}
	data         []byte
	reads        []int
	pos          int
	timeout      time.Duration
	mu           sync.Mutex
	closed       bool
	blockOnEmpty bool
}

// NewMockTransport creates a mock transport that serves the given frames in order
func NewMockTransport(frames ...[]byte) *MockTransport {
	m := &MockTransport{wake: make(chan struct{})}
	for _, f := range frames {
		m.data = append(m.data, f...)
	}
	return m
}

// ReadBytes returns exactly n bytes, an injected error, or a short read error
// once the fed data is exhausted. With SetBlockOnEmpty it waits for more data
// instead, until the timeout expires or the transport is closed.
func (m *MockTransport) ReadBytes(n int) ([]byte, error) {
	var timer <-chan time.Time
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, NewClosedError("ReadBytes", "mock")
		}
		if m.readErr != nil {
			err := m.readErr
			m.readErr = nil
			m.mu.Unlock()
			return nil, err
		}
		if len(m.data)-m.pos >= n {
			out := make([]byte, n)
			copy(out, m.data[m.pos:m.pos+n])
			m.pos += n
			m.reads = append(m.reads, n)
			m.mu.Unlock()
			return out, nil
		}
		if !m.blockOnEmpty {
			got := len(m.data) - m.pos
			m.pos = len(m.data)
			m.mu.Unlock()
			return nil, NewShortReadError("ReadBytes", "mock", got, n)
		}
		wake := m.wake
		if timer == nil && m.timeout > 0 {
			timer = time.After(m.timeout)
		}
		m.mu.Unlock()

		select {
		case <-wake:
		case <-timer:
			return nil, NewTimeoutError("ReadBytes", "mock")
		}
	}
}

// Feed appends bytes to the stream and wakes blocked readers
func (m *MockTransport) Feed(frames ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range frames {
		m.data = append(m.data, f...)
	}
	m.signal()
}

// SetError makes the next ReadBytes call fail with err
func (m *MockTransport) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
	m.signal()
}

// SetBlockOnEmpty makes reads wait for Feed instead of failing when the
// stream runs dry
func (m *MockTransport) SetBlockOnEmpty(block bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blockOnEmpty = block
}

// Consumed returns the number of bytes read so far
func (m *MockTransport) Consumed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

// Remaining returns the number of fed bytes not yet read
func (m *MockTransport) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data) - m.pos
}

// Reads returns the size of every successful read in order
func (m *MockTransport) Reads() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.reads...)
}

// Close unblocks all reads and marks the transport as closed
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		m.signal()
	}
	return nil
}

// SetTimeout bounds how long a blocked read waits. Zero waits forever.
func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// IsConnected returns false once the transport is closed
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// signal wakes blocked readers; callers hold mu
func (m *MockTransport) signal() {
	close(m.wake)
	m.wake = make(chan struct{})
}

var _ Transport = (*MockTransport)(nil)
