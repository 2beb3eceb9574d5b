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
	"testing"
	"time"

	"github.com/ZaparooProject/go-ecp/internal/frame"
	ecptest "github.com/ZaparooProject/go-ecp/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestReadFrame_UnrecognizedTagConsumesOneByte(t *testing.T) {
	t.Parallel()

	for i := 0; i < 256; i++ {
		tag := byte(i)
		if tag == frame.TagDisplayMessage || tag == frame.TagStatusChange {
			continue
		}
		mock := NewMockTransport([]byte{tag, frame.TagDisplayMessage, 0x00})

		rec, err := ReadFrame(mock, true)
		require.NoError(t, err, "tag %02X", tag)

		skipped, ok := rec.(*NoRecord)
		require.True(t, ok, "tag %02X: expected *NoRecord, got %T", tag, rec)
		assert.Equal(t, SkipUnrecognized, skipped.Reason)
		assert.Equal(t, tag, skipped.Tag)
		assert.Equal(t, 1, skipped.Length)
		assert.Equal(t, FrameUnknown, rec.FrameType())
		assert.Nil(t, rec.RawData())
		assert.Equal(t, 1, mock.Consumed(), "tag %02X", tag)
	}
}

func TestReadFrame_DisplayMessageConsumes44Bytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frame []byte
	}{
		{name: "all zero", frame: ecptest.BuildDisplayFrameRaw(0, 0, 0, 0, "")},
		{name: "all flags", frame: ecptest.BuildDisplayFrameRaw(0xFF, 0xFF, 0xFF, 0xFF, "FAULT 04")},
		{name: "tag bytes in payload", frame: ecptest.BuildDisplayFrameRaw(0xF2, 0xF7, 0xF2, 0xF7, "\xf7\xf2")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mock := NewMockTransport(tt.frame, []byte{0x00})

			rec, err := ReadFrame(mock, false)
			require.NoError(t, err)
			assert.IsType(t, &DisplayMessage{}, rec)
			assert.Equal(t, frame.DisplayMessageLength, mock.Consumed())
			assert.Equal(t, []int{1, 43}, mock.Reads())
		})
	}
}

func TestReadFrame_StatusChangeConsumesDeclaredLength(t *testing.T) {
	t.Parallel()

	for i := 0; i < 256; i++ {
		declared := byte(i)
		mock := NewMockTransport(ecptest.BuildStatusFrame(declared, nil), []byte{0xAA})

		rec, err := ReadFrame(mock, false)
		require.NoError(t, err, "length %d", declared)
		require.NotNil(t, rec)
		assert.Equal(t, int(declared)+2, mock.Consumed(), "length %d", declared)
		assert.Equal(t, 1, mock.Remaining())
	}
}

func TestReadFrame_RawDataMatchesConsumed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frame []byte
	}{
		{name: "display", frame: ecptest.BuildDisplayFrame(ecptest.DisplayFields{Address: 16, Text: "DISARMED"})},
		{name: "status length 21", frame: ecptest.BuildStatusFrame(21, nil)},
		{name: "status length 23", frame: ecptest.BuildArmedStatusFrame(true, false)},
		{name: "status length 40", frame: ecptest.BuildStatusFrame(40, map[int]byte{19: 0x02})},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mock := NewMockTransport(tt.frame)

			rec, err := ReadFrame(mock, true)
			require.NoError(t, err)
			require.NotNil(t, rec.RawData())
			assert.Len(t, rec.RawData(), mock.Consumed())
			assert.Equal(t, tt.frame, rec.RawData())
		})
	}
}

func TestReadFrame_NoRawDataByDefault(t *testing.T) {
	t.Parallel()
	mock := NewMockTransport(ecptest.BuildDisplayFrame(ecptest.DisplayFields{}), ecptest.BuildArmedStatusFrame(true, true))

	for i := 0; i < 2; i++ {
		rec, err := ReadFrame(mock, false)
		require.NoError(t, err)
		assert.Nil(t, rec.RawData())
	}
}

func TestReadFrame_StreamStaysAligned(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport(
		[]byte{0x00},
		ecptest.BuildStatusFrame(17, nil),
		ecptest.BuildDisplayFrame(ecptest.DisplayFields{Address: 1, Text: "ALARM ZONE 03"}),
		ecptest.BuildStatusFrame(200, nil),
		[]byte{0x55},
		ecptest.BuildArmedStatusFrame(true, true),
	)

	var got []string
	for mock.Remaining() > 0 {
		rec, err := ReadFrame(mock, false)
		require.NoError(t, err)
		switch r := rec.(type) {
		case *DisplayMessage:
			got = append(got, "display:"+r.Text[:13])
		case *StatusChange:
			got = append(got, fmt.Sprintf("status:%t/%t", r.Armed, r.Alarm))
		case *NoRecord:
			got = append(got, "skip:"+r.Reason.String())
		}
	}

	assert.Equal(t, []string{
		"skip:unrecognized frame type",
		"skip:short status frame",
		"display:ALARM ZONE 03",
		"skip:frame too large",
		"skip:unrecognized frame type",
		"status:true/true",
	}, got)
}

func TestReadFrame_SourceFailure(t *testing.T) {
	t.Parallel()

	t.Run("error on tag", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("port unplugged")
		mock := NewMockTransport()
		mock.SetError(cause)

		rec, err := ReadFrame(mock, false)
		require.Error(t, err)
		assert.Nil(t, rec)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "read frame tag")
		assert.NotErrorIs(t, err, ErrFrameTruncated)
	})

	t.Run("timeout inside display frame", func(t *testing.T) {
		t.Parallel()
		full := ecptest.BuildDisplayFrame(ecptest.DisplayFields{Text: "ARMED"})
		mock := NewMockTransport(full[:12])
		mock.SetBlockOnEmpty(true)
		require.NoError(t, mock.SetTimeout(10*time.Millisecond))

		rec, err := ReadFrame(mock, false)
		require.Error(t, err)
		assert.Nil(t, rec)
		assert.ErrorIs(t, err, ErrFrameTruncated)
		assert.ErrorIs(t, err, ErrTransportTimeout)
		assert.Equal(t, ErrorTypeTimeout, GetErrorType(err))
	})

	t.Run("timeout inside status payload", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport([]byte{frame.TagStatusChange, 0x17, 0x00})
		mock.SetBlockOnEmpty(true)
		require.NoError(t, mock.SetTimeout(10*time.Millisecond))

		_, err := ReadFrame(mock, false)
		require.ErrorIs(t, err, ErrFrameTruncated)
		assert.ErrorIs(t, err, ErrTransportTimeout)
	})

	t.Run("timeout waiting for tag", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport()
		mock.SetBlockOnEmpty(true)
		require.NoError(t, mock.SetTimeout(10*time.Millisecond))

		_, err := ReadFrame(mock, false)
		require.ErrorIs(t, err, ErrTransportTimeout)
		assert.NotErrorIs(t, err, ErrFrameTruncated)
	})

	t.Run("short display frame", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport([]byte{frame.TagDisplayMessage, 0x01, 0x02})

		rec, err := ReadFrame(mock, false)
		require.Error(t, err)
		assert.Nil(t, rec)
		assert.ErrorIs(t, err, ErrShortRead)
		assert.ErrorIs(t, err, ErrFrameTruncated)
		assert.True(t, IsRetryable(err))
	})

	t.Run("missing status length", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport([]byte{frame.TagStatusChange})

		_, err := ReadFrame(mock, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status frame length")
	})

	t.Run("truncated oversize frame", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport([]byte{frame.TagStatusChange, 0xF0, 0x00, 0x00})

		_, err := ReadFrame(mock, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "drain status frame")
	})

	t.Run("closed transport", func(t *testing.T) {
		t.Parallel()
		mock := NewMockTransport(ecptest.BuildArmedStatusFrame(true, false))
		require.NoError(t, mock.Close())

		_, err := ReadFrame(mock, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransportClosed)
		assert.False(t, IsRetryable(err))
	})
}

// shortSource returns fewer bytes than requested without an error
type shortSource struct{}

func (shortSource) ReadBytes(n int) ([]byte, error) {
	return make([]byte, n/2), nil
}

func TestReadFrame_ShortReadWithoutErrorIsFailure(t *testing.T) {
	t.Parallel()

	_, err := ReadFrame(shortSource{}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestNewReader(t *testing.T) {
	t.Parallel()

	t.Run("nil source", func(t *testing.T) {
		t.Parallel()
		r, err := NewReader(nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidParameter)
		assert.Nil(t, r)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		r, err := NewReader(NewMockTransport())
		require.NoError(t, err)
		cfg := r.Config()
		assert.False(t, cfg.IncludeRawData)
		assert.Equal(t, frame.DefaultMaxLength, cfg.MaxFrameLength)
	})

	t.Run("options", func(t *testing.T) {
		t.Parallel()
		logger := zap.NewNop()
		r, err := NewReader(NewMockTransport(), WithRawData(true), WithMaxFrameLength(100), WithLogger(logger))
		require.NoError(t, err)
		cfg := r.Config()
		assert.True(t, cfg.IncludeRawData)
		assert.Equal(t, 100, cfg.MaxFrameLength)
		assert.Same(t, logger, cfg.Logger)
	})

	t.Run("invalid max frame length", func(t *testing.T) {
		t.Parallel()
		for _, n := range []int{-1, 0, 1, 258, 1024} {
			_, err := NewReader(NewMockTransport(), WithMaxFrameLength(n))
			require.Error(t, err, "n=%d", n)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		}
	})
}

func TestReader_ReadFrameUsesConfig(t *testing.T) {
	t.Parallel()

	big := ecptest.BuildStatusFrame(255, map[int]byte{19: 0x02, 22: 0x04})
	mock := NewMockTransport(big, big)

	r, err := NewReader(mock, WithRawData(true), WithMaxFrameLength(frame.MaxStatusLength))
	require.NoError(t, err)

	rec, err := r.ReadFrame()
	require.NoError(t, err)
	status, ok := rec.(*StatusChange)
	require.True(t, ok, "expected *StatusChange, got %T", rec)
	assert.True(t, status.Armed)
	assert.True(t, status.Alarm)
	assert.Len(t, status.Raw, frame.MaxStatusLength)

	// The package-level entry point keeps the default bound
	rec, err = ReadFrame(mock, true)
	require.NoError(t, err)
	assert.Equal(t, &NoRecord{Tag: frame.TagStatusChange, Reason: SkipFrameTooLarge, Length: 257}, rec)
	assert.Equal(t, 0, mock.Remaining())
}

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("exact frame", func(t *testing.T) {
		t.Parallel()
		rec, err := Decode(ecptest.BuildArmedStatusFrame(false, true), false)
		require.NoError(t, err)
		assert.Equal(t, &StatusChange{Armed: false, Alarm: true}, rec)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		t.Parallel()
		raw := append(ecptest.BuildArmedStatusFrame(false, true), 0x00)
		_, err := Decode(raw, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidParameter)
		assert.Contains(t, err.Error(), "1 trailing bytes")
	})

	t.Run("truncated", func(t *testing.T) {
		t.Parallel()
		raw := ecptest.BuildDisplayFrame(ecptest.DisplayFields{})
		_, err := Decode(raw[:30], false)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrShortRead)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		_, err := Decode(nil, false)
		require.Error(t, err)
	})
}

func TestFrameTypeFromTag(t *testing.T) {
	t.Parallel()
	assert.Equal(t, FrameDisplayMessage, FrameTypeFromTag(0xF7))
	assert.Equal(t, FrameStatusChange, FrameTypeFromTag(0xF2))
	assert.Equal(t, FrameUnknown, FrameTypeFromTag(0xF6))
	assert.Equal(t, "display", FrameDisplayMessage.String())
	assert.Equal(t, "status", FrameStatusChange.String())
	assert.Equal(t, "unknown", FrameUnknown.String())
}

func TestReader_LogsToConfiguredLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	mock := NewMockTransport(
		ecptest.BuildDisplayFrame(ecptest.DisplayFields{Text: "READY", Address: 16}),
		ecptest.BuildArmedStatusFrame(true, false),
	)
	r, err := NewReader(mock, WithLogger(zap.New(core)))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := r.ReadFrame()
		require.NoError(t, err)
	}

	display := logs.FilterMessage("display message").All()
	require.Len(t, display, 1)
	assert.EqualValues(t, 16, display[0].ContextMap()["address"])

	status := logs.FilterMessage("status change").All()
	require.Len(t, status, 1)
	assert.Equal(t, true, status[0].ContextMap()["armed"])
}
