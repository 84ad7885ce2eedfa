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

package bitmap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildFrom(t *testing.T, ids []uint32) *Bitmap {
	t.Helper()
	b := NewBuilder()
	for _, id := range ids {
		require.NoError(t, b.Add(id))
	}
	bm, raw := b.Finish()
	reread, err := Unmarshal(raw)
	require.NoError(t, err)
	require.Equal(t, bm.Cardinality(), reread.Cardinality())
	return reread
}

func TestSeekAndIterate(t *testing.T) {
	bm := buildFrom(t, []uint32{2, 4, 8, 9})

	it := NewIterator(bm)
	require.Equal(t, uint32(2), it.Seek(1))
	it2 := NewIterator(bm)
	require.Equal(t, uint32(2), it2.Seek(2))
	it3 := NewIterator(bm)
	require.Equal(t, uint32(8), it3.Seek(6))
	it4 := NewIterator(bm)
	require.Equal(t, uint32(math.MaxUint32), it4.Seek(10))

	var got []uint32
	fwd := NewIterator(bm)
	for fwd.Next() {
		got = append(got, fwd.Value())
	}
	require.Equal(t, []uint32{2, 4, 8, 9}, got)
}

func TestDenseLayoutChosen(t *testing.T) {
	ids := make([]uint32, 0, 5000)
	for i := uint32(0); i < 5000; i++ {
		ids = append(ids, i)
	}
	bm := buildFrom(t, ids)
	require.Equal(t, 5000, bm.Cardinality())
	require.Equal(t, LayoutDense, bm.blocks[0].layout)
	require.True(t, bm.Contains(2500))
	require.False(t, bm.Contains(5000))
}

func TestAllSetLayoutChosen(t *testing.T) {
	ids := make([]uint32, 0, BlockDocs)
	for i := uint32(0); i < BlockDocs; i++ {
		ids = append(ids, i)
	}
	bm := buildFrom(t, ids)
	require.Equal(t, LayoutAllSet, bm.blocks[0].layout)
	require.True(t, bm.Contains(0))
	require.True(t, bm.Contains(BlockDocs-1))
}

func TestSeekIdempotentAndEOF(t *testing.T) {
	bm := buildFrom(t, []uint32{1, 5, 100, 100000})
	it := NewIterator(bm)
	require.True(t, it.Next())
	require.Equal(t, uint32(1), it.Value())
	require.Equal(t, uint32(5), it.Seek(3))
	require.Equal(t, uint32(5), it.Seek(5))
	require.Equal(t, uint32(100), it.Seek(6))
	require.Equal(t, uint32(100000), it.Seek(100000))
	require.Equal(t, uint32(math.MaxUint32), it.Seek(200000))
	require.Equal(t, uint32(math.MaxUint32), it.Seek(math.MaxUint32))
	require.False(t, it.Next())
}

func TestTrackPrevDoc(t *testing.T) {
	bm := buildFrom(t, []uint32{2, 4, 8})
	it := NewTrackPrevIterator(bm)
	require.True(t, it.Next())
	_, ok := it.Prev()
	require.False(t, ok)
	require.True(t, it.Next())
	p, ok := it.Prev()
	require.True(t, ok)
	require.Equal(t, uint32(2), p)
	require.True(t, it.Next())
	p, ok = it.Prev()
	require.True(t, ok)
	require.Equal(t, uint32(4), p)
}

func TestCrossBlockSparse(t *testing.T) {
	ids := []uint32{10, BlockDocs + 10, 2*BlockDocs + 5}
	bm := buildFrom(t, ids)
	require.Len(t, bm.blocks, 3)
	it := NewIterator(bm)
	var got []uint32
	for it.Next() {
		got = append(got, it.Value())
	}
	require.Equal(t, ids, got)
}
