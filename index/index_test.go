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

package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/segment"
	"github.com/nakama-labs/glint/store"
)

func addDoc(t *testing.T, w *Writer, title string) {
	t.Helper()
	txn := w.NewDocument()
	require.NoError(t, txn.InsertStored("title", []byte(title)))
	require.NoError(t, txn.InsertIndexed("body", glint.FeatureFreq, []segment.Token{{Term: []byte(title)}}))
	require.NoError(t, txn.Commit())
}

func TestWriterCommitPublishesSegments(t *testing.T) {
	dir := store.NewMemDirectory()
	w, err := Open(dir, Config{})
	require.NoError(t, err)

	addDoc(t, w, "one")
	addDoc(t, w, "two")
	require.NoError(t, w.Commit())

	require.Len(t, w.meta.Segments, 1)
	require.EqualValues(t, 2, w.meta.Segments[0].DocsCount)
	require.EqualValues(t, 1, w.meta.Generation)

	reopened, err := Open(dir, Config{})
	require.NoError(t, err)
	require.Len(t, reopened.meta.Segments, 1)
	require.EqualValues(t, 2, reopened.meta.Segments[0].DocsCount)
}

// TestDocumentRollbackLeavesWriterUsable exercises scenario 5: a
// failed document insert rolls the document back without disturbing
// documents already committed, and the writer is still usable for the
// next document afterward.
func TestDocumentRollbackLeavesWriterUsable(t *testing.T) {
	dir := store.NewMemDirectory()
	w, err := Open(dir, Config{})
	require.NoError(t, err)

	addDoc(t, w, "kept")

	bad := w.NewDocument()
	require.Error(t, bad.InsertIndexed("body", glint.FeaturePos, nil))
	require.Error(t, bad.Commit())

	addDoc(t, w, "also-kept")
	require.NoError(t, w.Commit())

	require.Len(t, w.meta.Segments, 1)
	require.EqualValues(t, 3, w.meta.Segments[0].DocsCount)
	require.EqualValues(t, 2, w.meta.Segments[0].LiveDocsCount)

	r, err := w.readerCache.Get(w.meta.Segments[0])
	require.NoError(t, err)
	require.True(t, r.IsLive(glint.MinDocID))
	require.False(t, r.IsLive(glint.DocID(2)))
	require.True(t, r.IsLive(glint.DocID(3)))

	title, ok := r.Column("title")
	require.True(t, ok)
	v, ok := title.Get(glint.MinDocID)
	require.True(t, ok)
	require.Equal(t, "kept", string(v))
	v, ok = title.Get(glint.DocID(3))
	require.True(t, ok)
	require.Equal(t, "also-kept", string(v))
}

func TestRemoveMasksMatchingDocuments(t *testing.T) {
	dir := store.NewMemDirectory()
	w, err := Open(dir, Config{})
	require.NoError(t, err)

	addDoc(t, w, "alpha")
	addDoc(t, w, "beta")
	require.NoError(t, w.Commit())

	w.Remove(func(doc glint.DocID, r *segment.Reader) bool {
		col, ok := r.Column("title")
		if !ok {
			return false
		}
		v, ok := col.Get(doc)
		return ok && string(v) == "alpha"
	})
	require.NoError(t, w.Commit())

	require.Len(t, w.meta.Segments, 1)
	require.EqualValues(t, 1, w.meta.Segments[0].LiveDocsCount)

	r, err := w.readerCache.Get(w.meta.Segments[0])
	require.NoError(t, err)
	require.False(t, r.IsLive(glint.MinDocID))
	require.True(t, r.IsLive(glint.DocID(2)))
}

// TestConsolidationSurvivesInterveningCommit exercises scenario 4:
// segment A is committed, segment B is committed, a consolidation of
// {A, B} is started, a deletion targeting a document in A commits
// before the consolidation lands, and the merged segment that finally
// installs reflects that deletion.
func TestConsolidationSurvivesInterveningCommit(t *testing.T) {
	dir := store.NewMemDirectory()
	w, err := Open(dir, Config{})
	require.NoError(t, err)

	addDoc(t, w, "doc1")
	addDoc(t, w, "doc2")
	require.NoError(t, w.Commit())

	addDoc(t, w, "doc3")
	require.NoError(t, w.Commit())

	require.Len(t, w.meta.Segments, 2)
	candidates := append([]glint.SegmentMeta(nil), w.meta.Segments...)

	require.NoError(t, w.Consolidate(func([]glint.SegmentMeta) []glint.SegmentMeta {
		return candidates
	}))

	w.Remove(func(doc glint.DocID, r *segment.Reader) bool {
		col, ok := r.Column("title")
		if !ok {
			return false
		}
		v, ok := col.Get(doc)
		return ok && string(v) == "doc1"
	})
	require.NoError(t, w.Commit())

	require.Len(t, w.meta.Segments, 1)
	merged := w.meta.Segments[0]
	require.EqualValues(t, 3, merged.DocsCount)
	require.EqualValues(t, 2, merged.LiveDocsCount)

	r, err := w.readerCache.Get(merged)
	require.NoError(t, err)
	title, ok := r.Column("title")
	require.True(t, ok)

	var live []string
	for d := glint.MinDocID; uint64(d) <= merged.DocsCount; d++ {
		if !r.IsLive(d) {
			continue
		}
		v, ok := title.Get(d)
		require.True(t, ok)
		live = append(live, string(v))
	}
	require.ElementsMatch(t, []string{"doc2", "doc3"}, live)
}
