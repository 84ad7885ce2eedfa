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

// Package bitmap implements Glint's sparse bitmap: a compact,
// block-structured DocID set chunked into 64K-doc blocks, each
// independently laid out as All-set, Dense (8 KiB bitmap), or Sparse
// (sorted 16-bit offsets) depending on its cardinality. A block index
// table gives O(log n) seek.
//
// The container-selection idea (pick the cheapest representation per
// chunk of the id space) follows the same trade-off RoaringBitmap/
// roaring makes between array, bitmap, and run containers; callers
// that need general set algebra over the results (merge doc maps,
// "except" filters on a term's postings) reach for a roaring.Bitmap
// instead of reimplementing it here.
package bitmap

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/nakama-labs/glint/glinterr"
)

// BlockDocs is the number of document ids covered by one block: the
// high 16 bits of a DocID select the block, the low 16 bits the
// in-block offset.
const BlockDocs = 1 << 16

// denseThreshold is the cardinality at or above which a block is
// stored as a dense bitmap rather than a sorted offset list.
const denseThreshold = 4097

// Layout identifies a block's physical encoding.
type Layout uint8

const (
	LayoutSparse Layout = iota
	LayoutDense
	LayoutAllSet
)

type blockEntry struct {
	firstDoc uint32 // first doc id in this block (absolute)
	byteOff  int     // offset of this block's payload in the data area
	layout   Layout
	count    int // cardinality of this block
}

// Builder accumulates a monotonically ascending set of DocIDs and
// produces an immutable, serialized Bitmap.
type Builder struct {
	cur        uint32 // current block number (doc >> 16)
	curOffsets []uint16
	blocks     []blockEntry
	data       []byte
	lastDoc    int64
	started    bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{lastDoc: -1}
}

// Add appends doc to the set. doc must be strictly greater than every
// previously added doc.
func (b *Builder) Add(doc uint32) error {
	if int64(doc) <= b.lastDoc {
		return glinterr.Wrap(glinterr.ErrIllegalArgument, "bitmap: doc ids must be strictly ascending", nil)
	}
	blockNum := doc / BlockDocs
	if !b.started {
		b.started = true
		b.cur = blockNum
	} else if blockNum != b.cur {
		b.flushBlock()
		b.cur = blockNum
	}
	b.curOffsets = append(b.curOffsets, uint16(doc%BlockDocs))
	b.lastDoc = int64(doc)
	return nil
}

func (b *Builder) flushBlock() {
	if len(b.curOffsets) == 0 {
		return
	}
	first := b.cur*BlockDocs + uint32(b.curOffsets[0])
	entry := blockEntry{firstDoc: first, byteOff: len(b.data), count: len(b.curOffsets)}

	switch {
	case len(b.curOffsets) >= BlockDocs:
		entry.layout = LayoutAllSet
	case len(b.curOffsets) >= denseThreshold:
		entry.layout = LayoutDense
		buf := make([]byte, BlockDocs/8)
		for _, off := range b.curOffsets {
			buf[off/8] |= 1 << (off % 8)
		}
		b.data = append(b.data, buf...)
	default:
		entry.layout = LayoutSparse
		tmp := make([]byte, 2*len(b.curOffsets))
		for i, off := range b.curOffsets {
			binary.LittleEndian.PutUint16(tmp[i*2:], off)
		}
		b.data = append(b.data, tmp...)
	}
	b.blocks = append(b.blocks, entry)
	b.curOffsets = b.curOffsets[:0]
}

// Finish seals the builder and returns the immutable bitmap plus its
// serialized bytes (block index table followed by block data), ready
// to be written to a "csi"-style index file.
func (b *Builder) Finish() (*Bitmap, []byte) {
	b.flushBlock()
	bm := &Bitmap{blocks: b.blocks, data: b.data}
	return bm, bm.Marshal()
}

// Bitmap is an immutable, block-structured DocID set.
type Bitmap struct {
	blocks []blockEntry
	data   []byte
}

// Cardinality returns the total number of ids in the set.
func (bm *Bitmap) Cardinality() int {
	n := 0
	for _, e := range bm.blocks {
		n += e.count
	}
	return n
}

// Marshal serializes the bitmap: varint block count, then per-block
// {firstDoc, byteOff, layout, count}, then the raw data area.
func (bm *Bitmap) Marshal() []byte {
	out := make([]byte, 0, 16+len(bm.blocks)*20+len(bm.data))
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(bm.blocks)))
	out = append(out, tmp[:n]...)
	for _, e := range bm.blocks {
		n = binary.PutUvarint(tmp[:], uint64(e.firstDoc))
		out = append(out, tmp[:n]...)
		n = binary.PutUvarint(tmp[:], uint64(e.byteOff))
		out = append(out, tmp[:n]...)
		out = append(out, byte(e.layout))
		n = binary.PutUvarint(tmp[:], uint64(e.count))
		out = append(out, tmp[:n]...)
	}
	out = append(out, bm.data...)
	return out
}

// Unmarshal parses a bitmap previously produced by Marshal.
func Unmarshal(buf []byte) (*Bitmap, error) {
	off := 0
	numBlocks, n := binary.Uvarint(buf[off:])
	if n <= 0 {
		return nil, glinterr.Wrap(glinterr.ErrIndex, "bitmap: truncated header", nil)
	}
	off += n
	blocks := make([]blockEntry, numBlocks)
	for i := range blocks {
		first, n := binary.Uvarint(buf[off:])
		if n <= 0 {
			return nil, glinterr.Wrap(glinterr.ErrIndex, "bitmap: truncated block entry", nil)
		}
		off += n
		byteOff, n := binary.Uvarint(buf[off:])
		if n <= 0 {
			return nil, glinterr.Wrap(glinterr.ErrIndex, "bitmap: truncated block entry", nil)
		}
		off += n
		if off >= len(buf) {
			return nil, glinterr.Wrap(glinterr.ErrIndex, "bitmap: truncated layout byte", nil)
		}
		layout := Layout(buf[off])
		off++
		count, n := binary.Uvarint(buf[off:])
		if n <= 0 {
			return nil, glinterr.Wrap(glinterr.ErrIndex, "bitmap: truncated block entry", nil)
		}
		off += n
		blocks[i] = blockEntry{firstDoc: uint32(first), byteOff: int(byteOff), layout: layout, count: int(count)}
	}
	return &Bitmap{blocks: blocks, data: buf[off:]}, nil
}

// blockDocAt returns the absolute doc id at rank idx (0..count-1)
// within the given block.
func (bm *Bitmap) blockDocAt(e blockEntry, idx int) uint32 {
	blockNum := e.firstDoc / BlockDocs
	switch e.layout {
	case LayoutAllSet:
		return blockNum*BlockDocs + uint32(idx)
	case LayoutSparse:
		off := binary.LittleEndian.Uint16(bm.data[e.byteOff+idx*2:])
		return blockNum*BlockDocs + uint32(off)
	case LayoutDense:
		// idx-th set bit in the bitmap; scan (O(BlockDocs) worst case,
		// acceptable for dense blocks which are already the "many
		// ids" case and are normally walked forward, not random
		// accessed by rank).
		buf := bm.data[e.byteOff : e.byteOff+BlockDocs/8]
		seen := 0
		for b := 0; b < len(buf); b++ {
			if buf[b] == 0 {
				continue
			}
			for bit := 0; bit < 8; bit++ {
				if buf[b]&(1<<bit) != 0 {
					if seen == idx {
						return blockNum*BlockDocs + uint32(b*8+bit)
					}
					seen++
				}
			}
		}
	}
	return 0
}

func (bm *Bitmap) blockContains(e blockEntry, doc uint32) bool {
	off := uint16(doc % BlockDocs)
	switch e.layout {
	case LayoutAllSet:
		return true
	case LayoutDense:
		buf := bm.data[e.byteOff : e.byteOff+BlockDocs/8]
		return buf[off/8]&(1<<(off%8)) != 0
	case LayoutSparse:
		lo, hi := 0, e.count
		for lo < hi {
			mid := (lo + hi) / 2
			v := binary.LittleEndian.Uint16(bm.data[e.byteOff+mid*2:])
			if v < off {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		return lo < e.count && binary.LittleEndian.Uint16(bm.data[e.byteOff+lo*2:]) == off
	}
	return false
}

// Contains reports whether doc is a member of the set, in O(log
// numBlocks) via the block index table.
func (bm *Bitmap) Contains(doc uint32) bool {
	idx := bm.blockIndexFor(doc / BlockDocs)
	if idx < 0 {
		return false
	}
	return bm.blockContains(bm.blocks[idx], doc)
}

func (bm *Bitmap) blockIndexFor(blockNum uint32) int {
	i := sort.Search(len(bm.blocks), func(i int) bool {
		return bm.blocks[i].firstDoc/BlockDocs >= blockNum
	})
	if i < len(bm.blocks) && bm.blocks[i].firstDoc/BlockDocs == blockNum {
		return i
	}
	return -1
}

// String is for debugging only.
func (bm *Bitmap) String() string {
	return fmt.Sprintf("Bitmap{blocks=%d, card=%d}", len(bm.blocks), bm.Cardinality())
}
