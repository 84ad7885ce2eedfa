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
	"github.com/nakama-labs/glint/enc"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/glinterr"
)

// PositionIterator exposes one document's position stream lazily:
// reading ahead without consuming freq positions first is a
// programmer error, asserted below in debug-style fashion via an
// explicit bounds check rather than a silent wraparound.
type PositionIterator struct {
	positions []glint.Position
	idx       int
}

// Next returns the next position and advances, or ok=false once the
// document's freq positions are exhausted.
func (p *PositionIterator) Next() (glint.Position, bool) {
	if p.idx >= len(p.positions) {
		return glint.Position{}, false
	}
	pos := p.positions[p.idx]
	p.idx++
	return pos, true
}

// Iterator walks a Sealed postings list in ascending doc order,
// matching bluge_segment_api/segment.go's PostingsIterator contract
// (Next/Advance/Count/Empty/Close).
type Iterator struct {
	sealed    Sealed
	blockIdx  int
	withinIdx int
	prevDoc   uint32
	doc       glint.DocID
	freq      uint64
	closed    bool
}

// NewIterator returns an iterator positioned before the first
// document.
func NewIterator(sealed Sealed) *Iterator {
	return &Iterator{sealed: sealed, blockIdx: -1}
}

// Empty reports whether this term has no postings at all.
func (it *Iterator) Empty() bool { return len(it.sealed.Blocks) == 0 }

// Count returns the total number of documents this term occurs in.
func (it *Iterator) Count() uint64 { return it.sealed.Meta.DocsCount }

// Freq returns the current document's term frequency, valid after a
// Next or Advance call that did not return EOF.
func (it *Iterator) Freq() uint64 { return it.freq }

// Doc returns the current document, or InvalidDocID before the first
// Next/Advance call.
func (it *Iterator) Doc() glint.DocID {
	if it.blockIdx < 0 {
		return glint.InvalidDocID
	}
	return it.doc
}

// Close releases iterator resources (no-op: Sealed data is plain
// slices, nothing to release eagerly).
func (it *Iterator) Close() error {
	it.closed = true
	return nil
}

func (it *Iterator) currentBlock() Block { return it.sealed.Blocks[it.blockIdx] }

// Next advances to the next document.
func (it *Iterator) Next() (glint.DocID, uint64, error) {
	if it.closed {
		return glint.EOFDocID, 0, glinterr.Wrap(glinterr.ErrIllegalState, "postings: Next after Close", nil)
	}
	for {
		if it.blockIdx < 0 {
			it.blockIdx = 0
			it.withinIdx = 0
		} else {
			it.withinIdx++
		}
		if it.blockIdx >= len(it.sealed.Blocks) {
			it.doc = glint.EOFDocID
			return glint.EOFDocID, 0, nil
		}
		blk := it.currentBlock()
		if it.withinIdx >= blk.DocCount {
			it.blockIdx++
			it.withinIdx = 0
			continue
		}
		it.prevDoc = it.docAt(blk, it.withinIdx)
		it.doc = glint.DocID(it.prevDoc)
		if blk.Freqs != nil {
			it.freq = enc.FastPackAt(blk.Freqs, it.withinIdx, blk.FreqBits)
		}
		return it.doc, it.freq, nil
	}
}

// docAt reconstructs the absolute doc id at index idx within blk by
// walking cumulative deltas from the block's start; the block's own
// first doc is derived from the previous block's LastDoc (0 for the
// first block).
func (it *Iterator) docAt(blk Block, idx int) uint32 {
	var base uint32
	if it.blockIdx > 0 {
		base = it.sealed.Blocks[it.blockIdx-1].LastDoc
	}
	cur := base
	for i := 0; i <= idx; i++ {
		cur += uint32(enc.FastPackAt(blk.DocDelta, i, blk.Bits))
	}
	return cur
}

// Advance seeks to the first doc >= target, using the skip list to
// jump directly to the containing block before scanning within it. If
// the current doc is already >= target, the iterator stays where it is.
func (it *Iterator) Advance(target glint.DocID) (glint.DocID, error) {
	if it.closed {
		return glint.EOFDocID, glinterr.Wrap(glinterr.ErrIllegalState, "postings: Advance after Close", nil)
	}
	if len(it.sealed.Blocks) == 0 {
		return glint.EOFDocID, nil
	}
	if it.blockIdx >= 0 && it.doc >= target {
		return it.doc, nil
	}
	rec, ok := it.sealed.Skip().Seek(uint64(target))
	if ok && int(rec.Pointer) > it.blockIdx {
		it.blockIdx = int(rec.Pointer)
		it.withinIdx = -1
	}
	for {
		doc, _, err := it.Next()
		if err != nil || doc == glint.EOFDocID {
			return doc, err
		}
		if doc >= target {
			return doc, nil
		}
	}
}

// Positions returns a lazy position reader for the current document.
// Valid only when the postings writer recorded FeaturePos.
func (it *Iterator) Positions() *PositionIterator {
	if it.blockIdx < 0 || it.blockIdx >= len(it.sealed.Blocks) {
		return &PositionIterator{}
	}
	blk := it.currentBlock()
	if it.withinIdx >= len(blk.Positions) {
		return &PositionIterator{}
	}
	return &PositionIterator{positions: blk.Positions[it.withinIdx]}
}

// Wanderator is the block-max skipping variant: its contract matches
// Iterator exactly, plus the guarantee that Advance may skip an
// entire block whose BlockMax cannot beat the caller's current
// threshold.
type Wanderator struct {
	*Iterator
	blockMax []float64
}

// NewWanderator wraps sealed with per-block max-score hints (computed
// externally by the scoring package from each block's term
// frequencies; a block with no precomputed score contributes
// +Inf so it is never skipped).
func NewWanderator(sealed Sealed, blockMax []float64) *Wanderator {
	return &Wanderator{Iterator: NewIterator(sealed), blockMax: blockMax}
}

// AdvanceWithThreshold behaves like Advance, but additionally skips
// whole blocks whose max possible score cannot exceed threshold: any
// block entirely below threshold is marked exhausted without
// decoding a single doc delta from it.
func (w *Wanderator) AdvanceWithThreshold(target glint.DocID, threshold float64) (glint.DocID, error) {
	next := w.blockIdx + 1
	for next < len(w.sealed.Blocks) && next < len(w.blockMax) &&
		uint32(target) > w.sealed.Blocks[next].LastDoc && w.blockMax[next] <= threshold {
		w.blockIdx = next
		w.withinIdx = w.currentBlock().DocCount - 1
		next++
	}
	return w.Advance(target)
}
