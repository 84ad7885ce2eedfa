// Copyright 2026 The Glint Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package enc implements the encoding primitives shared by every
// on-disk format in Glint: variable-length integers, zigzag mapping for
// signed values, and fixed-block bit-packing with random access.
package enc

import "fmt"

// PutUvarint appends the 7-bit-group variable-length encoding of v to
// buf and returns the extended slice.
func PutUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// ReadUvarint decodes a variable-length unsigned integer from buf
// starting at off, returning the value and the number of bytes
// consumed.
func ReadUvarint(buf []byte, off int) (uint64, int, error) {
	var v uint64
	var shift uint
	start := off
	for {
		if off >= len(buf) {
			return 0, 0, fmt.Errorf("enc: truncated varint at %d", start)
		}
		b := buf[off]
		off++
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, off - start, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, 0, fmt.Errorf("enc: varint overflow at %d", start)
		}
	}
}

// ZigzagEncode maps a signed integer onto the unsigned range so that
// small-magnitude values (positive or negative) stay small.
func ZigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// ZigzagDecode inverts ZigzagEncode.
func ZigzagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// PutVarint appends the zigzag+varint encoding of a signed value.
func PutVarint(buf []byte, v int64) []byte {
	return PutUvarint(buf, ZigzagEncode(v))
}

// ReadVarint decodes a zigzag+varint signed value.
func ReadVarint(buf []byte, off int) (int64, int, error) {
	u, n, err := ReadUvarint(buf, off)
	if err != nil {
		return 0, 0, err
	}
	return ZigzagDecode(u), n, nil
}
