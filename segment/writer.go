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
	"sort"

	"github.com/nakama-labs/glint/bitmap"
	"github.com/nakama-labs/glint/columnstore"
	"github.com/nakama-labs/glint/crypto"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/glinterr"
	"github.com/nakama-labs/glint/postings"
)

// fieldBuilder accumulates one field's per-term postings and, when the
// field carries a FeatureFreq-derived norm, its length column.
type fieldBuilder struct {
	id       glint.FieldID
	name     string
	features glint.FeatureSet
	terms    map[string]*postings.Writer
	norm     *columnstore.Writer
	normID   glint.FieldID
}

// Writer maintains per-field inverted lists, stored columns, and an
// optional sort column for a single in-progress segment, per spec.md
// §4.7.
type Writer struct {
	cipher crypto.Cipher

	nextFieldID glint.FieldID
	fields      map[string]*fieldBuilder
	fieldOrder  []string

	columns     map[string]*columnstore.Writer
	columnIDs   map[string]glint.FieldID
	columnOrder []string

	hasSort    bool
	sortColumn *columnstore.Writer
	sortID     glint.FieldID

	maskBuilder *bitmap.Builder

	nextDoc  glint.DocID
	curDoc   glint.DocID
	curBegun bool
	curFail  error

	docsCount     uint64
	liveDocsCount uint64
}

// NewWriter returns an empty segment writer. cipher may be nil, in
// which case columns and terms are stored unencrypted.
func NewWriter(cipher crypto.Cipher) *Writer {
	if cipher == nil {
		cipher = crypto.Identity{}
	}
	return &Writer{
		cipher:      cipher,
		nextFieldID: 1,
		fields:      make(map[string]*fieldBuilder),
		columns:     make(map[string]*columnstore.Writer),
		columnIDs:   make(map[string]glint.FieldID),
		maskBuilder: bitmap.NewBuilder(),
	}
}

// Begin allocates the next DocId and reserves rollback state for it.
func (w *Writer) Begin() glint.DocID {
	if w.nextDoc == 0 {
		w.nextDoc = glint.MinDocID
	}
	w.curDoc = w.nextDoc
	w.nextDoc++
	w.curBegun = true
	w.curFail = nil
	w.docsCount++
	return w.curDoc
}

func (w *Writer) requireBegun() error {
	if !w.curBegun {
		return glinterr.Wrap(glinterr.ErrIllegalState, "segment: insert called without Begin", nil)
	}
	return nil
}

func (w *Writer) fieldFor(name string, features glint.FeatureSet) *fieldBuilder {
	fb, ok := w.fields[name]
	if ok {
		return fb
	}
	fb = &fieldBuilder{
		id:       w.nextFieldID,
		name:     name,
		features: features,
		terms:    make(map[string]*postings.Writer),
	}
	w.nextFieldID++
	if features.Has(glint.FeatureFreq) {
		fb.normID = w.nextFieldID
		w.nextFieldID++
		fb.norm = columnstore.NewWriter(fb.normID, "", w.cipher)
	}
	w.fields[name] = fb
	w.fieldOrder = append(w.fieldOrder, name)
	return fb
}

// InsertIndexed tokenizes field's occurrences (already analyzed by the
// caller into Tokens) and appends terms/positions for the document
// currently begun, also feeding the field's norm column with the
// document's token count.
func (w *Writer) InsertIndexed(field string, features glint.FeatureSet, tokens []Token) error {
	if err := w.requireBegun(); err != nil {
		return err
	}
	if err := features.Validate(); err != nil {
		w.curFail = err
		return err
	}
	fb := w.fieldFor(field, features)

	grouped := make(map[string][]glint.Position, len(tokens))
	var order []string
	for _, tok := range tokens {
		key := string(tok.Term)
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], glint.Position{Pos: tok.Pos, Offset: tok.Offset, Payload: tok.Payload})
	}
	sort.Strings(order)
	for _, term := range order {
		tw, ok := fb.terms[term]
		if !ok {
			tw = postings.NewWriter(features)
			fb.terms[term] = tw
		}
		positions := grouped[term]
		if err := tw.Add(w.curDoc, uint64(len(positions)), positions); err != nil {
			w.curFail = err
			return err
		}
	}
	if fb.norm != nil {
		normValue := encodeNorm(uint64(len(tokens)))
		if err := fb.norm.Prepare(uint32(w.curDoc), normValue); err != nil {
			w.curFail = err
			return err
		}
	}
	return nil
}

// encodeNorm stores a token count exactly as 4 big-endian bytes,
// saturating at 0xFFFFFFFF (1/sqrt(length)-style scoring inputs are
// derived at query time from this raw count; the segment format only
// needs to persist the count itself).
func encodeNorm(count uint64) []byte {
	if count > 0xFFFFFFFF {
		count = 0xFFFFFFFF
	}
	return []byte{byte(count >> 24), byte(count >> 16), byte(count >> 8), byte(count)}
}

func decodeNorm(b []byte) uint64 {
	if len(b) != 4 {
		return 0
	}
	return uint64(b[0])<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3])
}

// DecodeNorm recovers the raw token count a field's norm column stores
// for one document, for the scoring package's length-normalization
// score functions.
func DecodeNorm(b []byte) uint64 { return decodeNorm(b) }

func (w *Writer) ensureColumn(field string) *columnstore.Writer {
	cw, ok := w.columns[field]
	if !ok {
		id := w.nextFieldID
		w.nextFieldID++
		cw = columnstore.NewWriter(id, field, w.cipher)
		w.columns[field] = cw
		w.columnIDs[field] = id
		w.columnOrder = append(w.columnOrder, field)
	}
	return cw
}

// InsertStored appends value to field's named column for the document
// currently begun.
func (w *Writer) InsertStored(field string, value []byte) error {
	if err := w.requireBegun(); err != nil {
		return err
	}
	cw := w.ensureColumn(field)
	if err := cw.Prepare(uint32(w.curDoc), value); err != nil {
		w.curFail = err
		return err
	}
	return nil
}

// InsertStoredSorted appends value to the segment's sort column,
// required when the index is sorted.
func (w *Writer) InsertStoredSorted(value []byte) error {
	if err := w.requireBegun(); err != nil {
		return err
	}
	if !w.hasSort {
		w.sortID = w.nextFieldID
		w.nextFieldID++
		w.sortColumn = columnstore.NewWriter(w.sortID, "", w.cipher)
		w.hasSort = true
	}
	if err := w.sortColumn.Prepare(uint32(w.curDoc), value); err != nil {
		w.curFail = err
		return err
	}
	return nil
}

// Commit seals the current document. If any insert on it failed,
// Rollback is invoked automatically instead.
func (w *Writer) Commit() error {
	if err := w.requireBegun(); err != nil {
		return err
	}
	if w.curFail != nil {
		w.Rollback()
		return w.curFail
	}
	w.liveDocsCount++
	w.curBegun = false
	return nil
}

// Rollback marks the current DocId as masked and leaves every other
// invariant intact: already-appended term/column data for this
// document stays in place, but the doc_mask excludes it from every
// live-doc view (reader iterators consult the mask, not the raw
// postings/column presence).
func (w *Writer) Rollback() {
	if !w.curBegun {
		return
	}
	_ = w.maskBuilder.Add(uint32(w.curDoc))
	w.curBegun = false
	w.curFail = nil
}

// Reset discards every accumulated field, column, and mask entry,
// returning the writer to a construction-time state; used when a
// flush fails partway and the writer must remain reusable (spec.md
// §4.7's flush invariant).
func (w *Writer) Reset() {
	*w = *NewWriter(w.cipher)
}
