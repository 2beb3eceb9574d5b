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

	"github.com/ZaparooProject/go-ecp/internal/frame"
	"go.uber.org/zap"
)

// drainChunk bounds each read while discarding an oversize frame
const drainChunk = 32

type decodeFunc func(r *Reader, tag byte, includeRaw bool) (Record, error)

// decoders maps each supported frame type to its decoder. A tag whose type
// is not in the table yields a NoRecord.
var decoders = map[FrameType]decodeFunc{
	FrameDisplayMessage: (*Reader).decodeDisplayMessage,
	FrameStatusChange:   (*Reader).decodeStatusChange,
}

// Reader reads and decodes frames from a ByteSource.
//
// Thread Safety: Reader is NOT thread-safe. Each call to ReadFrame consumes
// one whole frame from the source, and the source must not be read by anyone
// else in the meantime.
type Reader struct {
	src    ByteSource
	config *Config
}

// NewReader creates a Reader over src. The Reader does not take ownership
// of src; the caller still closes it.
func NewReader(src ByteSource, opts ...Option) (*Reader, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil byte source", ErrInvalidParameter)
	}
	r := &Reader{
		src:    src,
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ReadFrame reads one frame from src and decodes it using the default
// configuration. It always returns either a Record or an error.
//
// An error is returned only when src fails; frames that are unrecognized,
// too short, or too large produce a *NoRecord after being consumed in full.
// A failure after the tag byte wraps ErrFrameTruncated and leaves src in the
// middle of a frame.
func ReadFrame(src ByteSource, includeRawData bool) (Record, error) {
	r := &Reader{src: src, config: DefaultConfig()}
	return r.readFrame(includeRawData)
}

// Decode decodes one complete frame held in raw. It fails if raw is shorter
// than the frame it announces or holds bytes past the end of that frame.
func Decode(raw []byte, includeRawData bool) (Record, error) {
	src := &sliceSource{data: raw}
	rec, err := ReadFrame(src, includeRawData)
	if err != nil {
		return nil, err
	}
	if src.pos != len(src.data) {
		return nil, fmt.Errorf("%w: %d trailing bytes after %s frame",
			ErrInvalidParameter, len(src.data)-src.pos, rec.FrameType())
	}
	return rec, nil
}

// ReadFrame reads and decodes the next frame
func (r *Reader) ReadFrame() (Record, error) {
	return r.readFrame(r.config.IncludeRawData)
}

// Config returns the reader configuration
func (r *Reader) Config() Config {
	return *r.config
}

func (r *Reader) readFrame(includeRaw bool) (Record, error) {
	b, err := r.readExact(1)
	if err != nil {
		return nil, fmt.Errorf("read frame tag: %w", err)
	}
	tag := b[0]

	decode, ok := decoders[FrameTypeFromTag(tag)]
	if !ok {
		r.log().Debug("skipping unrecognized frame tag", zap.Uint8("tag", tag))
		return &NoRecord{Tag: tag, Reason: SkipUnrecognized, Length: 1}, nil
	}
	rec, err := decode(r, tag, includeRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFrameTruncated, err)
	}
	return rec, nil
}

// readExact reads exactly n bytes from the source
func (r *Reader) readExact(n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	data, err := r.src.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, NewShortReadError("ReadBytes", "", len(data), n)
	}
	return data, nil
}

// drain discards n bytes without buffering more than drainChunk at a time
func (r *Reader) drain(n int) error {
	for n > 0 {
		chunk := min(n, drainChunk)
		if _, err := r.readExact(chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

func (r *Reader) maxFrameLength() int {
	if r.config.MaxFrameLength <= 0 {
		return frame.DefaultMaxLength
	}
	return r.config.MaxFrameLength
}

func (r *Reader) log() *zap.Logger {
	if r.config.Logger != nil {
		return r.config.Logger
	}
	return Logger()
}

// sliceSource serves ReadBytes from an in-memory buffer
type sliceSource struct {
	data []byte
	pos  int
}

func (s *sliceSource) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.New("negative read length")
	}
	if s.pos+n > len(s.data) {
		got := len(s.data) - s.pos
		s.pos = len(s.data)
		return nil, NewShortReadError("ReadBytes", "", got, n)
	}
	out := s.data[s.pos : s.pos+n]
	s.pos += n
	return out, nil
}
