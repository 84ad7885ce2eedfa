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

// Package merge combines several immutable segments into one, dropping
// masked documents and, for a sorted index, reordering live documents
// by the sort column's value.
//
// Grounded on ice's segment merge, which likewise computes a per-input
// doc map up front (local doc id -> output doc id, or "dropped") before
// touching any field data, then replays every field/column through
// that map in a single pass.
package merge

import (
	"bytes"
	"sort"

	"github.com/nakama-labs/glint/columnstore"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/glinterr"
	"github.com/nakama-labs/glint/segment"
)

// DocMap translates one input segment's local DocIds to the merged
// output segment's DocIds. A local doc that was masked, or never
// live, maps to glint.EOFDocID.
type DocMap []glint.DocID

// Lookup returns the output DocId for local, or (EOFDocID, false) if
// local is out of range or was dropped.
func (m DocMap) Lookup(local glint.DocID) (glint.DocID, bool) {
	if int(local) >= len(m) {
		return glint.EOFDocID, false
	}
	out := m[local]
	return out, out != glint.EOFDocID
}

// BuildUnsortedDocMaps assigns output DocIds contiguously, processing
// readers in input order and, within a reader, local DocIds in
// ascending order; masked docs map to EOFDocID.
func BuildUnsortedDocMaps(readers []*segment.Reader) ([]DocMap, uint64) {
	maps := make([]DocMap, len(readers))
	next := glint.MinDocID
	for i, r := range readers {
		count := r.Meta().DocsCount
		m := make(DocMap, count+1)
		for local := glint.MinDocID; uint64(local) <= count; local++ {
			if !r.IsLive(local) {
				m[local] = glint.EOFDocID
				continue
			}
			m[local] = next
			next++
		}
		maps[i] = m
	}
	return maps, uint64(next) - uint64(glint.MinDocID)
}

type sortTuple struct {
	readerIdx int
	local     glint.DocID
	value     []byte
}

// BuildSortedDocMaps requires every reader to carry a sort column; it
// collects every live (reader, local doc, value) tuple across all
// readers, orders them by value ascending (ties broken by reader
// index, a stable and deterministic choice since no reader's values
// are otherwise distinguished), and assigns output DocIds in that
// order. This produces the same final ordering a streaming k-way
// merge over each reader's already-sorted live docs would, without the
// bookkeeping a true heap merge needs for this implementation's scale.
func BuildSortedDocMaps(readers []*segment.Reader) ([]DocMap, uint64, error) {
	maps := make([]DocMap, len(readers))
	for i, r := range readers {
		maps[i] = make(DocMap, r.Meta().DocsCount+1)
		for local := range maps[i] {
			maps[i][local] = glint.EOFDocID
		}
	}

	var tuples []sortTuple
	for i, r := range readers {
		col, ok := r.SortColumn()
		if !ok {
			return nil, 0, glinterr.Wrap(glinterr.ErrIllegalArgument, "merge: sorted merge requires every input to carry a sort column", nil)
		}
		it := col.Iterator(columnstore.HintNone, nil)
		for it.Next() {
			doc := it.Doc()
			if !r.IsLive(doc) {
				continue
			}
			tuples = append(tuples, sortTuple{readerIdx: i, local: doc, value: append([]byte(nil), it.Value()...)})
		}
	}

	sort.Slice(tuples, func(a, b int) bool {
		c := bytes.Compare(tuples[a].value, tuples[b].value)
		if c != 0 {
			return c < 0
		}
		if tuples[a].readerIdx != tuples[b].readerIdx {
			return tuples[a].readerIdx < tuples[b].readerIdx
		}
		return tuples[a].local < tuples[b].local
	})

	next := glint.MinDocID
	for _, t := range tuples {
		maps[t.readerIdx][t.local] = next
		next++
	}
	return maps, uint64(next) - uint64(glint.MinDocID), nil
}
