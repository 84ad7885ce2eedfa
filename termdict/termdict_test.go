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

package termdict

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nakama-labs/glint/glint"
)

func buildDict(t *testing.T, terms []string) *Dictionary {
	t.Helper()
	b := NewBuilder()
	for i, term := range terms {
		require.NoError(t, b.Add([]byte(term), glint.TermMeta{DocsCount: uint64(i + 1), TotalFreq: uint64(i + 2)}, uint64(i)))
	}
	d, err := b.Finish()
	require.NoError(t, err)
	return d
}

func TestSeekExact(t *testing.T) {
	d := buildDict(t, []string{"apple", "banana", "cat", "catalog", "category", "dog"})
	require.Equal(t, []byte("apple"), d.Min())
	require.Equal(t, []byte("dog"), d.Max())
	require.EqualValues(t, 6, d.Size())

	e, ok, err := d.SeekExact([]byte("cat"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "cat", string(e.Term))

	_, ok, err = d.SeekExact([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSequentialSeekGE(t *testing.T) {
	d := buildDict(t, []string{"apple", "banana", "cat", "dog"})
	it := d.Sequential()
	require.True(t, it.SeekGE([]byte("b")))
	require.Equal(t, "banana", string(it.Current().Term))

	var got []string
	for it.Next() {
		got = append(got, string(it.Current().Term))
	}
	require.Equal(t, []string{"cat", "dog"}, got)
}

func TestRandomOnlyIterator(t *testing.T) {
	d := buildDict(t, []string{"apple", "banana"})
	it := d.RandomOnly()
	e, ok, err := it.SeekExact([]byte("banana"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "banana", string(e.Term))

	_, err = it.Next()
	require.Error(t, err)
}

func TestBitUnion(t *testing.T) {
	d := buildDict(t, []string{"apple", "banana", "cat"})
	var seen []string
	err := d.BitUnion([]uint64{0, 2}, func(e Entry) error {
		seen = append(seen, string(e.Term))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"apple", "cat"}, seen)
}
