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

// Package transport provides internal transport utilities
package transport

import (
	"context"
	"errors"
	"time"

	ecp "github.com/ZaparooProject/go-ecp"
)

// RetryOperation represents a function that can be retried
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be retried
// - error: any permanent error that should stop retries
type RetryOperation[T any] func() (T, bool, error)

// RetryConfig configures retry behavior
type RetryConfig struct {
	OnRetry     func(attempt int, err error)
	Description string
	MaxRetries  int
	RetryDelay  time.Duration
}

// WithRetry executes an operation with retry logic. A negative MaxRetries
// retries until ctx is done.
func WithRetry[T any](ctx context.Context, config RetryConfig, operation RetryOperation[T]) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; config.MaxRetries < 0 || attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, shouldRetry, err := operation()
		if !shouldRetry {
			return result, err
		}
		lastErr = err

		if config.MaxRetries >= 0 && attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			config.OnRetry(attempt+1, err)
		}

		if config.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(config.RetryDelay):
			}
		}
	}

	return zero, retriesExhausted(config, lastErr)
}

// Reopen retries factory until it returns a transport, stopping early on
// errors that are not retryable
func Reopen(ctx context.Context, config RetryConfig, factory func() (ecp.Transport, error)) (ecp.Transport, error) {
	return WithRetry(ctx, config, func() (ecp.Transport, bool, error) {
		t, err := factory()
		if err != nil {
			return nil, !isPermanentOpenError(err), err
		}
		return t, false, nil
	})
}

// isPermanentOpenError reports open failures that retrying cannot fix
func isPermanentOpenError(err error) bool {
	var te *ecp.TransportError
	return errors.As(err, &te) && te.Type == ecp.ErrorTypePermanent
}

func retriesExhausted(config RetryConfig, lastErr error) error {
	if lastErr == nil {
		lastErr = ecp.ErrTransportRead
	}
	return ecp.NewTransportError(config.Description, "", lastErr, ecp.ErrorTypeTransient)
}
