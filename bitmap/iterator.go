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

package bitmap

import "math"

// Iterator walks a Bitmap's ids in ascending order. One iterator per
// goroutine; Bitmap itself is safe to share read-only across many
// iterators.
type Iterator struct {
	bm        *Bitmap
	blockIdx  int
	withinIdx int
	cur       uint32
	prev      uint32
	havePrev  bool
	trackPrev bool
	eof       bool
}

// NewIterator returns an iterator positioned before the first id.
func NewIterator(bm *Bitmap) *Iterator {
	return &Iterator{bm: bm, blockIdx: -1, withinIdx: -1}
}

// NewTrackPrevIterator returns an iterator that also exposes the id
// immediately preceding the current one via Prev, per the
// TrackPrevDoc columnstore contract.
func NewTrackPrevIterator(bm *Bitmap) *Iterator {
	it := NewIterator(bm)
	it.trackPrev = true
	return it
}

// Next advances to the next id and returns false once exhausted.
func (it *Iterator) Next() bool {
	if it.eof {
		return false
	}
	if it.trackPrev && it.blockIdx >= 0 {
		it.prev = it.cur
		it.havePrev = true
	}
	for {
		if it.blockIdx < 0 {
			it.blockIdx = 0
			it.withinIdx = 0
		} else {
			it.withinIdx++
		}
		if it.blockIdx >= len(it.bm.blocks) {
			it.eof = true
			return false
		}
		e := it.bm.blocks[it.blockIdx]
		if it.withinIdx >= e.count {
			it.blockIdx++
			it.withinIdx = 0
			continue
		}
		it.cur = it.bm.blockDocAt(e, it.withinIdx)
		return true
	}
}

// Value returns the current id, or glint.EOFDocID-equivalent
// math.MaxUint32 once exhausted.
func (it *Iterator) Value() uint32 {
	if it.eof {
		return math.MaxUint32
	}
	return it.cur
}

// Prev returns the id immediately preceding Value, and whether one
// exists. Only meaningful when the iterator was created with
// NewTrackPrevIterator.
func (it *Iterator) Prev() (uint32, bool) {
	return it.prev, it.havePrev
}

// Seek positions the iterator at the first id >= target, or EOF if
// none exists. Seek is idempotent: seeking to a value <= the current
// one is a no-op. Seek(EOF) always returns EOF.
func (it *Iterator) Seek(target uint32) uint32 {
	if it.eof {
		return math.MaxUint32
	}
	if it.blockIdx >= 0 && !it.eof && it.cur >= target {
		return it.cur
	}
	blockNum := target / BlockDocs
	startBlock := it.bm.blockIndexAtOrAfter(blockNum)
	if startBlock < 0 {
		it.eof = true
		it.blockIdx = len(it.bm.blocks)
		return math.MaxUint32
	}
	it.blockIdx = startBlock
	e := it.bm.blocks[startBlock]
	if e.firstDoc/BlockDocs > blockNum {
		// target falls in a gap before this block: first id in block
		// is already >= target.
		it.withinIdx = 0
		it.cur = it.bm.blockDocAt(e, 0)
		return it.cur
	}
	// target's block is present; binary search within it.
	idx := it.bm.withinBlockSeek(e, target)
	if idx < e.count {
		it.withinIdx = idx
		it.cur = it.bm.blockDocAt(e, idx)
		return it.cur
	}
	// exhausted this block, advance to the next non-empty block.
	it.blockIdx++
	it.withinIdx = -1
	if it.Next() {
		return it.cur
	}
	return math.MaxUint32
}

func (bm *Bitmap) blockIndexAtOrAfter(blockNum uint32) int {
	lo, hi := 0, len(bm.blocks)
	for lo < hi {
		mid := (lo + hi) / 2
		if bm.blocks[mid].firstDoc/BlockDocs < blockNum {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo >= len(bm.blocks) {
		return -1
	}
	return lo
}

func (bm *Bitmap) withinBlockSeek(e blockEntry, target uint32) int {
	switch e.layout {
	case LayoutAllSet:
		blockNum := e.firstDoc / BlockDocs
		d := int(target) - int(blockNum*BlockDocs)
		if d < 0 {
			d = 0
		}
		return d
	case LayoutDense, LayoutSparse:
		lo, hi := 0, e.count
		for lo < hi {
			mid := (lo + hi) / 2
			if bm.blockDocAt(e, mid) < target {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		return lo
	}
	return e.count
}
