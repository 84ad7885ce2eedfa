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

package segment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/postings"
	"github.com/nakama-labs/glint/store"
)

func tokens(words ...string) []Token {
	out := make([]Token, len(words))
	for i, w := range words {
		out[i] = Token{Term: []byte(w), Pos: uint64(i)}
	}
	return out
}

func TestWriterFlushAndReopen(t *testing.T) {
	w := NewWriter(nil)
	features := glint.FeatureFreq | glint.FeaturePos

	doc1 := w.Begin()
	require.Equal(t, glint.MinDocID, doc1)
	require.NoError(t, w.InsertIndexed("body", features, tokens("the", "cat", "sat")))
	require.NoError(t, w.InsertStored("title", []byte("Cat Nap")))
	require.NoError(t, w.InsertStoredSorted([]byte{0, 0, 0, 1}))
	require.NoError(t, w.Commit())

	doc2 := w.Begin()
	require.NoError(t, w.InsertIndexed("body", features, tokens("the", "dog", "ran")))
	require.NoError(t, w.InsertStored("title", []byte("Dog Run")))
	require.NoError(t, w.InsertStoredSorted([]byte{0, 0, 0, 2}))
	require.NoError(t, w.Commit())

	doc3 := w.Begin()
	require.Equal(t, glint.DocID(3), doc3)
	require.NoError(t, w.InsertIndexed("body", features, tokens("the", "bird", "flew")))
	w.Rollback()

	dir := store.NewMemDirectory()
	meta, err := w.Flush(glint.SegmentMeta{Name: "seg1", Version: 1}, dir)
	require.NoError(t, err)
	require.EqualValues(t, 3, meta.DocsCount)
	require.EqualValues(t, 2, meta.LiveDocsCount)
	require.NotEmpty(t, meta.Files)

	r, err := Open(dir, meta, nil)
	require.NoError(t, err)

	require.True(t, r.IsLive(doc1))
	require.True(t, r.IsLive(doc2))
	require.False(t, r.IsLive(doc3))

	body, ok := r.Field("body")
	require.True(t, ok)
	entry, found, err := body.Dict.SeekExact([]byte("the"))
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 3, entry.Meta.DocsCount)

	sealed, err := body.Postings(entry.Postings)
	require.NoError(t, err)
	it := postings.NewIterator(sealed)
	doc, freq, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, doc1, doc)
	require.EqualValues(t, 1, freq)
	doc, _, err = it.Next()
	require.NoError(t, err)
	require.Equal(t, doc2, doc)
	doc, _, err = it.Next()
	require.NoError(t, err)
	require.Equal(t, doc3, doc)
	require.False(t, r.IsLive(doc))

	catEntry, found, err := body.Dict.SeekExact([]byte("cat"))
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 1, catEntry.Meta.DocsCount)

	title, ok := r.Column("title")
	require.True(t, ok)
	v, ok := title.Get(doc1)
	require.True(t, ok)
	require.Equal(t, "Cat Nap", string(v))
	v, ok = title.Get(doc2)
	require.True(t, ok)
	require.Equal(t, "Dog Run", string(v))

	sort, ok := r.SortColumn()
	require.True(t, ok)
	v, ok = sort.Get(doc2)
	require.True(t, ok)
	require.Equal(t, []byte{0, 0, 0, 2}, v)

	norm, ok := r.NormColumn("body")
	require.True(t, ok)
	v, ok = norm.Get(doc1)
	require.True(t, ok)
	require.EqualValues(t, 3, decodeNorm(v))
}

func TestWriterResetDiscardsCommittedDocs(t *testing.T) {
	w := NewWriter(nil)
	w.Begin()
	require.NoError(t, w.InsertStored("title", []byte("x")))
	require.NoError(t, w.Commit())
	w.Reset()

	w.Begin()
	require.NoError(t, w.InsertStored("title", []byte("y")))
	require.NoError(t, w.Commit())

	dir := store.NewMemDirectory()
	meta, err := w.Flush(glint.SegmentMeta{Name: "seg2", Version: 1}, dir)
	require.NoError(t, err)
	require.EqualValues(t, 1, meta.DocsCount)

	r, err := Open(dir, meta, nil)
	require.NoError(t, err)
	title, ok := r.Column("title")
	require.True(t, ok)
	v, ok := title.Get(glint.MinDocID)
	require.True(t, ok)
	require.Equal(t, "y", string(v))
}
