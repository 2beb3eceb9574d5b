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

package frame

import "strings"

// HasBits reports whether any bit of mask is set in buf[offset].
// Offsets past the end of buf report false.
func HasBits(buf []byte, offset int, mask byte) bool {
	if offset < 0 || offset >= len(buf) {
		return false
	}
	return buf[offset]&mask != 0
}

// ByteEquals reports whether buf[offset] equals want.
// The second result is false when offset is outside buf.
func ByteEquals(buf []byte, offset int, want byte) (equal, ok bool) {
	if offset < 0 || offset >= len(buf) {
		return false, false
	}
	return buf[offset] == want, true
}

// Latin1 converts each byte to the code point of the same value.
func Latin1(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		_, _ = sb.WriteRune(rune(b))
	}
	return sb.String()
}

// StatusFrameLength returns the total length of an F2 frame whose length
// byte is declared.
func StatusFrameLength(declared byte) int {
	return int(declared) + StatusHeaderLength
}
