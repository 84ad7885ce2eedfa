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

package columnstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nakama-labs/glint/glint"
)

func reopen(t *testing.T, sealed Sealed) *Column {
	t.Helper()
	col, err := OpenColumn(sealed.Header, sealed.IndexBytes, sealed.DataBytes, nil)
	require.NoError(t, err)
	return col
}

func TestFixedLengthSkipAndSeek(t *testing.T) {
	w := NewWriter(1, "body", nil)
	for d := uint32(1); d <= 2037; d++ {
		if d == 1025 {
			continue
		}
		require.NoError(t, w.Prepare(d, []byte("abcd")))
	}
	sealed := w.Finish()
	require.Equal(t, glint.ColumnFixed, sealed.Header.Type)

	col := reopen(t, sealed)
	require.Equal(t, "body", col.Name())

	for _, d := range []glint.DocID{1, 2, 1024, 1026, 2037} {
		v, ok := col.Get(d)
		require.True(t, ok, "doc %d", d)
		require.Equal(t, "abcd", string(v))
	}

	_, ok := col.Get(1025)
	require.False(t, ok)

	it := col.Iterator(HintNone, nil)
	require.True(t, it.Seek(1025))
	require.Equal(t, glint.DocID(1026), it.Doc())
	require.Equal(t, "abcd", string(it.Value()))
}

func TestMaskRoundTrip(t *testing.T) {
	w := NewWriter(2, "exists", nil)
	for _, d := range []uint32{1, 2, 3, 10, 11} {
		require.NoError(t, w.Prepare(d, nil))
	}
	sealed := w.Finish()
	require.Equal(t, glint.ColumnMask, sealed.Header.Type)

	col := reopen(t, sealed)
	_, ok := col.Get(3)
	require.True(t, ok)
	_, ok = col.Get(4)
	require.False(t, ok)

	var got []glint.DocID
	it := col.Iterator(HintNone, nil)
	for it.Next() {
		got = append(got, it.Doc())
	}
	require.Equal(t, []glint.DocID{1, 2, 3, 10, 11}, got)
}

func TestSparseVariableLength(t *testing.T) {
	w := NewWriter(3, "title", nil)
	values := map[uint32]string{
		1:  "a",
		2:  "bb",
		5:  "ccc",
		9:  "dddd",
		70000: "crossblock",
	}
	docs := []uint32{1, 2, 5, 9, 70000}
	for _, d := range docs {
		require.NoError(t, w.Prepare(d, []byte(values[d])))
	}
	sealed := w.Finish()
	require.Equal(t, glint.ColumnSparse, sealed.Header.Type)

	col := reopen(t, sealed)
	for _, d := range docs {
		v, ok := col.Get(d)
		require.True(t, ok, "doc %d", d)
		require.Equal(t, values[d], string(v))
	}
	_, ok := col.Get(6)
	require.False(t, ok)
}

func TestResetRollsBackLastPrepare(t *testing.T) {
	w := NewWriter(4, "f", nil)
	require.NoError(t, w.Prepare(1, []byte("x")))
	require.NoError(t, w.Prepare(2, []byte("y")))
	w.Reset()
	require.NoError(t, w.Prepare(3, []byte("z")))

	sealed := w.Finish()
	col := reopen(t, sealed)
	_, ok := col.Get(2)
	require.False(t, ok)
	v, ok := col.Get(3)
	require.True(t, ok)
	require.Equal(t, "z", string(v))
}

func TestDenseFixedFromMerge(t *testing.T) {
	b := NewDenseFixedBuilder(5, "score", nil, 1, 4)
	for i := 0; i < 10; i++ {
		b.Append([]byte("aaaa"))
	}
	sealed := b.Finish()
	require.Equal(t, glint.ColumnDenseFixed, sealed.Header.Type)

	col := reopen(t, sealed)
	for d := glint.DocID(1); d <= 10; d++ {
		v, ok := col.Get(d)
		require.True(t, ok)
		require.Equal(t, "aaaa", string(v))
	}
}
