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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ecptest "github.com/ZaparooProject/go-ecp/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMonitorBus_Replay(t *testing.T) {
	t.Parallel()

	var capture []byte
	capture = append(capture, ecptest.BuildDisplayFrame(ecptest.DisplayFields{Text: "READY TO ARM", Ready: true})...)
	capture = append(capture, 0x00)
	capture = append(capture, ecptest.BuildArmedStatusFrame(true, false)...)

	path := filepath.Join(t.TempDir(), "capture.bin")
	require.NoError(t, os.WriteFile(path, capture, 0o600))

	cfg := defaultSettings()
	cfg.Replay = path

	var out bytes.Buffer
	require.NoError(t, monitorBus(context.Background(), cfg, zap.NewNop(), &out))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "READY TO ARM", strings.TrimSpace(lines[0]))
	assert.Equal(t, "armed=true alarm=false", lines[1])
}

func TestMonitorBus_ReplayRaw(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "capture.bin")
	require.NoError(t, os.WriteFile(path, ecptest.BuildArmedStatusFrame(false, true), 0o600))

	cfg := defaultSettings()
	cfg.Replay = path
	cfg.Raw = true

	var out bytes.Buffer
	require.NoError(t, monitorBus(context.Background(), cfg, zap.NewNop(), &out))
	assert.True(t, strings.HasPrefix(out.String(), "armed=false alarm=true  f217"))
}

func TestMonitorBus_MissingCapture(t *testing.T) {
	t.Parallel()

	cfg := defaultSettings()
	cfg.Replay = filepath.Join(t.TempDir(), "missing.bin")

	var out bytes.Buffer
	err := monitorBus(context.Background(), cfg, zap.NewNop(), &out)
	require.Error(t, err)
	assert.Empty(t, out.String())
}
