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

// Config controls how a Reader decodes frames
type Config struct {
	Logger *zap.Logger
	// MaxFrameLength bounds the bytes buffered for one F2 frame. Larger
	// frames are drained and reported as SkipFrameTooLarge.
	MaxFrameLength int
	// IncludeRawData attaches the consumed bytes to decoded records
	IncludeRawData bool
}

// DefaultConfig returns the default reader configuration
func DefaultConfig() *Config {
	return &Config{
		MaxFrameLength: frame.DefaultMaxLength,
	}
}

// Option is a functional option for configuring a Reader
type Option func(*Reader) error

// WithRawData attaches the raw frame bytes to every decoded record
func WithRawData(include bool) Option {
	return func(r *Reader) error {
		r.config.IncludeRawData = include
		return nil
	}
}

// WithMaxFrameLength sets the largest F2 frame, tag and length byte
// included, that is buffered and decoded
func WithMaxFrameLength(n int) Option {
	return func(r *Reader) error {
		if n < frame.StatusHeaderLength || n > frame.MaxStatusLength {
			return fmt.Errorf("%w: max frame length %d outside [%d, %d]",
				ErrInvalidParameter, n, frame.StatusHeaderLength, frame.MaxStatusLength)
		}
		r.config.MaxFrameLength = n
		return nil
	}
}

// WithLogger sets a logger for this reader instead of the package logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Reader) error {
		r.config.Logger = l
		return nil
	}
}
