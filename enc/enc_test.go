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

package enc

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUvarintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, math.MaxUint32, math.MaxUint64}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		cases = append(cases, r.Uint64())
	}
	for _, v := range cases {
		buf := PutUvarint(nil, v)
		got, n, err := ReadUvarint(buf, 0)
		require.NoError(t, err)
		require.Equal(t, len(buf), n)
		require.Equal(t, v, got)
	}
}

func TestZigzagRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 127, -128, math.MaxInt64, math.MinInt64}
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		cases = append(cases, r.Int63()-r.Int63())
	}
	for _, v := range cases {
		require.Equal(t, v, ZigzagDecode(ZigzagEncode(v)))
	}
}

func TestVarintSignedRoundTrip(t *testing.T) {
	cases := []int64{0, -1, 1, -12345, 12345}
	for _, v := range cases {
		buf := PutVarint(nil, v)
		got, n, err := ReadVarint(buf, 0)
		require.NoError(t, err)
		require.Equal(t, len(buf), n)
		require.Equal(t, v, got)
	}
}

func TestBitPackRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for trial := 0; trial < 200; trial++ {
		bits := uint(r.Intn(33))
		k := 1 + r.Intn(BlockSize)
		maxV := uint64(1)<<bits - 1
		if bits == 0 {
			maxV = 0
		}
		values := make([]uint64, k)
		for i := range values {
			if maxV == 0 {
				values[i] = 0
			} else {
				values[i] = uint64(r.Int63()) % (maxV + 1)
			}
		}
		packed := Pack(values, bits)
		require.Len(t, packed, PackedByteLen(k, bits))
		got := Unpack(packed, k, bits)
		require.Equal(t, values, got)
		for i, v := range values {
			require.Equal(t, v, FastPackAt(packed, i, bits))
		}
	}
}

func TestAllEqualZero(t *testing.T) {
	require.True(t, AllEqualZero([]uint64{0, 0, 0}))
	require.False(t, AllEqualZero([]uint64{0, 1, 0}))
	require.True(t, AllEqualZero(nil))
}

func TestBitsRequired(t *testing.T) {
	require.Equal(t, uint(0), BitsRequired([]uint64{0, 0}))
	require.Equal(t, uint(1), BitsRequired([]uint64{0, 1}))
	require.Equal(t, uint(8), BitsRequired([]uint64{255}))
	require.Equal(t, uint(9), BitsRequired([]uint64{256}))
}
