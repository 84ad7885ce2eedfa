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

package merge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/postings"
	"github.com/nakama-labs/glint/segment"
	"github.com/nakama-labs/glint/store"
)

func mustOpen(t *testing.T, w *segment.Writer, dir store.Directory, name string) *segment.Reader {
	t.Helper()
	meta, err := w.Flush(glint.SegmentMeta{Name: name, Version: 1}, dir)
	require.NoError(t, err)
	r, err := segment.Open(dir, meta, nil)
	require.NoError(t, err)
	return r
}

func tokens(words ...string) []segment.Token {
	out := make([]segment.Token, len(words))
	for i, w := range words {
		out[i] = segment.Token{Term: []byte(w), Pos: uint64(i)}
	}
	return out
}

func TestMergeUnsortedRenumbers(t *testing.T) {
	dir := store.NewMemDirectory()
	features := glint.FeatureFreq | glint.FeaturePos

	w1 := segment.NewWriter(nil)
	w1.Begin()
	require.NoError(t, w1.InsertIndexed("body", features, tokens("alpha", "beta")))
	require.NoError(t, w1.InsertStored("title", []byte("one")))
	require.NoError(t, w1.Commit())
	w1.Begin()
	require.NoError(t, w1.InsertIndexed("body", features, tokens("alpha", "gamma")))
	require.NoError(t, w1.InsertStored("title", []byte("two")))
	require.NoError(t, w1.Commit())
	r1 := mustOpen(t, w1, dir, "seg1")

	w2 := segment.NewWriter(nil)
	w2.Begin()
	require.NoError(t, w2.InsertIndexed("body", features, tokens("alpha", "delta")))
	require.NoError(t, w2.InsertStored("title", []byte("three")))
	require.NoError(t, w2.Commit())
	r2 := mustOpen(t, w2, dir, "seg2")

	meta, _, err := Merge([]*segment.Reader{r1, r2}, false, "merged", dir, nil)
	require.NoError(t, err)
	require.EqualValues(t, 3, meta.DocsCount)
	require.EqualValues(t, 3, meta.LiveDocsCount)

	r, err := segment.Open(dir, meta, nil)
	require.NoError(t, err)

	body, ok := r.Field("body")
	require.True(t, ok)
	entry, found, err := body.Dict.SeekExact([]byte("alpha"))
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 3, entry.Meta.DocsCount)

	sealed, err := body.Postings(entry.Postings)
	require.NoError(t, err)
	it := postings.NewIterator(sealed)
	doc, _, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, glint.MinDocID, doc)
	doc, _, err = it.Next()
	require.NoError(t, err)
	require.Equal(t, glint.DocID(2), doc)
	doc, _, err = it.Next()
	require.NoError(t, err)
	require.Equal(t, glint.DocID(3), doc)

	title, ok := r.Column("title")
	require.True(t, ok)
	v, ok := title.Get(glint.DocID(3))
	require.True(t, ok)
	require.Equal(t, "three", string(v))
}

func TestMergeSortedOrdersBySortColumn(t *testing.T) {
	dir := store.NewMemDirectory()

	w1 := segment.NewWriter(nil)
	w1.Begin()
	require.NoError(t, w1.InsertStored("title", []byte("b")))
	require.NoError(t, w1.InsertStoredSorted([]byte{0, 0, 0, 2}))
	require.NoError(t, w1.Commit())
	r1 := mustOpen(t, w1, dir, "seg1")

	w2 := segment.NewWriter(nil)
	w2.Begin()
	require.NoError(t, w2.InsertStored("title", []byte("a")))
	require.NoError(t, w2.InsertStoredSorted([]byte{0, 0, 0, 1}))
	require.NoError(t, w2.Commit())
	r2 := mustOpen(t, w2, dir, "seg2")

	meta, _, err := Merge([]*segment.Reader{r1, r2}, true, "merged-sorted", dir, nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, meta.DocsCount)

	r, err := segment.Open(dir, meta, nil)
	require.NoError(t, err)

	title, ok := r.Column("title")
	require.True(t, ok)
	v, ok := title.Get(glint.MinDocID)
	require.True(t, ok)
	require.Equal(t, "a", string(v))
	v, ok = title.Get(glint.DocID(2))
	require.True(t, ok)
	require.Equal(t, "b", string(v))
}
