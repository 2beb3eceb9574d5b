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
	"errors"
	"fmt"
)

// Transport errors
var (
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportClosed  = errors.New("transport closed")
	ErrShortRead        = errors.New("short read from byte source")
)

// ErrFrameTruncated wraps a source failure that happened after a frame tag
// was consumed. The source is no longer positioned on a frame boundary.
var ErrFrameTruncated = errors.New("frame truncated")

// Configuration and discovery errors
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrDeviceNotFound   = errors.New("device not found")
)

// ErrorType classifies transport errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors will not go away by retrying
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on retry
	ErrorTypeTransient
	// ErrorTypeTimeout errors occurred because the source did not deliver in time
	ErrorTypeTimeout
)

// String returns the name of the error type
func (e ErrorType) String() string {
	switch e {
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(e))
	}
}

// TransportError describes a failure of the byte source underneath a frame read
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error of the given type
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewShortReadError reports a source that returned fewer bytes than requested
func NewShortReadError(op, port string, got, want int) *TransportError {
	return NewTransportError(op, port,
		fmt.Errorf("%w: got %d of %d bytes", ErrShortRead, got, want), ErrorTypeTransient)
}

// NewClosedError reports a read on a closed transport
func NewClosedError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportClosed, ErrorTypePermanent)
}

// IsRetryable reports whether a caller may retry the operation that failed
// with err, for example by reopening the transport
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	return errors.Is(err, ErrTransportTimeout) ||
		errors.Is(err, ErrTransportRead) ||
		errors.Is(err, ErrShortRead)
}

// GetErrorType returns the classification of err
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTransportTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrTransportRead), errors.Is(err, ErrShortRead):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
