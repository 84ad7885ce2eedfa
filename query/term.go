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

package query

import (
	"github.com/nakama-labs/glint/columnstore"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/postings"
	"github.com/nakama-labs/glint/scoring"
	"github.com/nakama-labs/glint/segment"
)

// TermIterator walks one term's postings list against its live-doc
// mask, scoring each match with a bound scoring.Scorer. It is the leaf
// driver every other query iterator is ultimately built from.
type TermIterator struct {
	reader *segment.Reader
	it     *postings.Iterator
	scorer scoring.Scorer
	norm   *columnstore.Column
	doc    glint.DocID
}

// NewTermIterator looks up term in field's dictionary and, if present,
// returns an iterator over its postings restricted to live documents.
// ok is false when the term does not occur in this segment at all.
func NewTermIterator(r *segment.Reader, field *segment.FieldReader, term []byte, fn scoring.ScoreFunc) (*TermIterator, bool, error) {
	entry, found, err := field.Dict.SeekExact(term)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	sealed, err := field.Postings(entry.Postings)
	if err != nil {
		return nil, false, err
	}
	docFreq, totalFreq := TermStats(entry.Meta)
	collection, err := FieldStats(r, field.Name)
	if err != nil {
		return nil, false, err
	}
	scorer := scoring.NewScorer(fn, scoring.Stats{DocFreq: docFreq, TotalTermFreq: totalFreq, Collection: collection})
	normCol, _ := r.NormColumn(field.Name)
	ti := &TermIterator{
		reader: r,
		it:     postings.NewIterator(sealed),
		scorer: scorer,
		norm:   normCol,
	}
	return ti, true, nil
}

func (t *TermIterator) Doc() glint.DocID { return t.it.Doc() }

// Next advances to the next live document carrying this term.
func (t *TermIterator) Next() (glint.DocID, error) {
	for {
		doc, _, err := t.it.Next()
		if err != nil || doc == glint.EOFDocID {
			t.doc = glint.EOFDocID
			return glint.EOFDocID, err
		}
		if !t.reader.IsLive(doc) {
			continue
		}
		t.doc = doc
		return doc, nil
	}
}

// Advance seeks to the first live document >= target.
func (t *TermIterator) Advance(target glint.DocID) (glint.DocID, error) {
	doc, err := t.it.Advance(target)
	for err == nil && doc != glint.EOFDocID && !t.reader.IsLive(doc) {
		doc, _, err = t.it.Next()
	}
	t.doc = doc
	return doc, err
}

// Score scores the current document using the term's frequency there
// and, when the field carries a norm column, its token count.
func (t *TermIterator) Score() float64 {
	var norm uint64
	if t.norm != nil {
		if v, ok := t.norm.Get(t.doc); ok {
			norm = segment.DecodeNorm(v)
		}
	}
	return t.scorer.Score(t.it.Freq(), norm)
}
