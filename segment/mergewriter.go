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
	"github.com/nakama-labs/glint/columnstore"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/postings"
)

// The methods in this file let the merge package build a segment.Writer
// directly from already-decoded field/column/postings data, bypassing
// the Begin/Commit per-document transaction InsertIndexed/InsertStored
// assume: a merge's output DocIds are computed up front (see the merge
// package's doc_map), so every field/term/column for a merged segment
// can be populated in any order as long as each individual postings
// term or column ends up Prepare'd/Add'ed in ascending output-doc
// order, exactly like a normal Writer in single-document use.

// MergeField ensures field exists with the given feature set, creating
// its norm column when the feature set implies one, without touching
// any document.
func (w *Writer) MergeField(field string, features glint.FeatureSet) {
	w.fieldFor(field, features)
}

// MergeTerm appends one already-decoded term occurrence to field's
// postings for outDoc. Calls for the same (field, term) must arrive in
// ascending outDoc order across the whole merge.
func (w *Writer) MergeTerm(field string, features glint.FeatureSet, term []byte, outDoc glint.DocID, freq uint64, positions []glint.Position) error {
	fb := w.fieldFor(field, features)
	key := string(term)
	tw, ok := fb.terms[key]
	if !ok {
		tw = postings.NewWriter(features)
		fb.terms[key] = tw
	}
	return tw.Add(outDoc, freq, positions)
}

// MergeNorm appends field's length-norm value for outDoc, when field
// carries a norm column.
func (w *Writer) MergeNorm(field string, features glint.FeatureSet, outDoc glint.DocID, value []byte) error {
	fb := w.fieldFor(field, features)
	if fb.norm == nil {
		return nil
	}
	return fb.norm.Prepare(uint32(outDoc), value)
}

// MergeColumn appends value to a stored column for outDoc. Calls for
// the same column must arrive in ascending outDoc order.
func (w *Writer) MergeColumn(field string, outDoc glint.DocID, value []byte) error {
	cw := w.ensureColumn(field)
	return cw.Prepare(uint32(outDoc), value)
}

// MergeSortColumn appends value to the output segment's sort column
// for outDoc.
func (w *Writer) MergeSortColumn(outDoc glint.DocID, value []byte) error {
	if !w.hasSort {
		w.sortID = w.nextFieldID
		w.nextFieldID++
		w.sortColumn = columnstore.NewWriter(w.sortID, "", w.cipher)
		w.hasSort = true
	}
	return w.sortColumn.Prepare(uint32(outDoc), value)
}

// SetDocCounts records the merged segment's total/live doc counts
// directly, since a merge never produces a masked doc: every masked
// input doc was already compacted out of the doc_map.
func (w *Writer) SetDocCounts(total uint64) {
	w.docsCount = total
	w.liveDocsCount = total
}
