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

package postings

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nakama-labs/glint/glint"
)

func TestIteratorForwardAndFreq(t *testing.T) {
	w := NewWriter(glint.FeatureFreq)
	docs := []uint32{1, 5, 9, 300, 301}
	for i, d := range docs {
		require.NoError(t, w.Add(glint.DocID(d), uint64(i+1), nil))
	}
	sealed := w.Finish()
	require.EqualValues(t, len(docs), sealed.Meta.DocsCount)

	it := NewIterator(sealed)
	var got []uint32
	var freqs []uint64
	for {
		doc, freq, err := it.Next()
		require.NoError(t, err)
		if doc == glint.EOFDocID {
			break
		}
		got = append(got, uint32(doc))
		freqs = append(freqs, freq)
	}
	require.Equal(t, docs, got)
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, freqs)
}

func TestAdvanceAcrossBlocks(t *testing.T) {
	w := NewWriter(0)
	for d := uint32(1); d <= 300; d++ {
		require.NoError(t, w.Add(glint.DocID(d), 0, nil))
	}
	sealed := w.Finish()
	require.Greater(t, len(sealed.Blocks), 1)

	it := NewIterator(sealed)
	doc, err := it.Advance(250)
	require.NoError(t, err)
	require.Equal(t, glint.DocID(250), doc)

	doc, err = it.Advance(1000)
	require.NoError(t, err)
	require.Equal(t, glint.EOFDocID, doc)
}

func TestPositionsLazyPerDocument(t *testing.T) {
	w := NewWriter(glint.FeatureFreq | glint.FeaturePos)
	require.NoError(t, w.Add(1, 2, []glint.Position{{Pos: 0}, {Pos: 5}}))
	require.NoError(t, w.Add(2, 1, []glint.Position{{Pos: 1}}))
	sealed := w.Finish()

	it := NewIterator(sealed)
	doc, freq, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, glint.DocID(1), doc)
	require.EqualValues(t, 2, freq)
	pit := it.Positions()
	p, ok := pit.Next()
	require.True(t, ok)
	require.EqualValues(t, 0, p.Pos)
	p, ok = pit.Next()
	require.True(t, ok)
	require.EqualValues(t, 5, p.Pos)
	_, ok = pit.Next()
	require.False(t, ok)
}
