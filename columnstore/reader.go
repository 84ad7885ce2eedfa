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

package columnstore

import (
	"github.com/nakama-labs/glint/bitmap"
	"github.com/nakama-labs/glint/crypto"
	"github.com/nakama-labs/glint/enc"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/glinterr"
)

// Hint selects the traversal strategy a Column iterator uses,
// mirroring ice/v2/docvalues.go's visitDocValues (plain forward scan)
// versus its consolidation-time merge path (which additionally needs
// the previous live doc to rewrite tombstoned runs).
type Hint uint8

const (
	// HintNone iterates every doc present in the column, forward only.
	HintNone Hint = iota
	// HintMask iterates restricted to a caller-supplied live-doc mask.
	HintMask
	// HintPrevDoc additionally exposes the previous doc id visited, for
	// columns built with PropTrackPrevDoc.
	HintPrevDoc
	// HintConsolidation is used by the merge writer; it traverses the
	// column exactly as HintPrevDoc does.
	HintConsolidation
)

// Column is a sealed, readable column: a header plus the decoded
// index/data regions backing random access and iteration.
type Column struct {
	header glint.ColumnHeader
	name   string
	cipher crypto.Cipher
	data   []byte

	fixedLen     int
	fixedBlocks  []uint64
	sparseBlocks []sparseReadBlock
	docBitmap    *bitmap.Bitmap

	warm       bool
	warmBytes  int64
	accountant MemoryAccountant
}

type sparseReadBlock struct {
	firstDoc uint32
	addr     uint64
	avg      uint64
	bits     uint
	count    int
	lastSize uint64
	deltas   []byte
}

// OpenColumn decodes a Sealed column (or its on-disk equivalent: header
// plus index bytes plus data bytes) into a queryable Column.
func OpenColumn(header glint.ColumnHeader, indexBytes, dataBytes []byte, cipher crypto.Cipher) (*Column, error) {
	if cipher == nil {
		cipher = crypto.Identity{}
	}
	c := &Column{header: header, cipher: cipher, data: dataBytes, fixedLen: -1}

	off := 0
	if header.Properties&glint.PropNoName == 0 {
		nameLen, n, err := enc.ReadUvarint(indexBytes, off)
		if err != nil {
			return nil, glinterr.Wrap(glinterr.ErrIndex, "columnstore: truncated name length", err)
		}
		off += n
		nameBuf := append([]byte(nil), indexBytes[off:off+int(nameLen)]...)
		off += int(nameLen)
		if header.Properties&glint.PropEncrypted != 0 {
			if err := cipher.Decrypt(0, nameBuf); err != nil {
				return nil, glinterr.Wrap(glinterr.ErrEncryption, "columnstore: name decrypt", err)
			}
		}
		c.name = string(nameBuf)
	} else {
		_, n, err := enc.ReadUvarint(indexBytes, off)
		if err != nil {
			return nil, glinterr.Wrap(glinterr.ErrIndex, "columnstore: truncated name length", err)
		}
		off += n
	}

	switch header.Type {
	case glint.ColumnMask:
		bm, err := bitmap.Unmarshal(indexBytes[off:])
		if err != nil {
			return nil, err
		}
		c.docBitmap = bm
	case glint.ColumnFixed, glint.ColumnDenseFixed:
		fixedLen, n, err := enc.ReadUvarint(indexBytes, off)
		if err != nil {
			return nil, glinterr.Wrap(glinterr.ErrIndex, "columnstore: truncated fixed len", err)
		}
		off += n
		c.fixedLen = int(fixedLen)
		numBlocks, n, err := enc.ReadUvarint(indexBytes, off)
		if err != nil {
			return nil, glinterr.Wrap(glinterr.ErrIndex, "columnstore: truncated block count", err)
		}
		off += n
		c.fixedBlocks = make([]uint64, numBlocks)
		for i := range c.fixedBlocks {
			v, n, err := enc.ReadUvarint(indexBytes, off)
			if err != nil {
				return nil, glinterr.Wrap(glinterr.ErrIndex, "columnstore: truncated block offset", err)
			}
			off += n
			c.fixedBlocks[i] = v
		}
		if header.BitmapIndexOffset != 0 {
			bm, err := bitmap.Unmarshal(indexBytes[int(header.BitmapIndexOffset):])
			if err != nil {
				return nil, err
			}
			c.docBitmap = bm
		}
	case glint.ColumnSparse:
		numBlocks, n, err := enc.ReadUvarint(indexBytes, off)
		if err != nil {
			return nil, glinterr.Wrap(glinterr.ErrIndex, "columnstore: truncated block count", err)
		}
		off += n
		c.sparseBlocks = make([]sparseReadBlock, numBlocks)
		for i := range c.sparseBlocks {
			var b sparseReadBlock
			v, n, err := enc.ReadUvarint(indexBytes, off)
			if err != nil {
				return nil, err
			}
			off += n
			b.addr = v
			v, n, err = enc.ReadUvarint(indexBytes, off)
			if err != nil {
				return nil, err
			}
			off += n
			b.avg = v
			b.bits = uint(indexBytes[off])
			off++
			v, n, err = enc.ReadUvarint(indexBytes, off)
			if err != nil {
				return nil, err
			}
			off += n
			b.count = int(v)
			v, n, err = enc.ReadUvarint(indexBytes, off)
			if err != nil {
				return nil, err
			}
			off += n
			b.lastSize = v
			dlen, n, err := enc.ReadUvarint(indexBytes, off)
			if err != nil {
				return nil, err
			}
			off += n
			b.deltas = indexBytes[off : off+int(dlen)]
			off += int(dlen)
			c.sparseBlocks[i] = b
		}
		if header.BitmapIndexOffset != 0 {
			bm, err := bitmap.Unmarshal(indexBytes[int(header.BitmapIndexOffset):])
			if err != nil {
				return nil, err
			}
			c.docBitmap = bm
		}
	}
	return c, nil
}

// Name is the column's logical field name, empty for PropNoName
// columns.
func (c *Column) Name() string { return c.name }

// Header returns the column's on-disk header.
func (c *Column) Header() glint.ColumnHeader { return c.header }

func (c *Column) blockValue(doc uint32, blockNum int, idxInBlock int) ([]byte, bool) {
	switch c.header.Type {
	case glint.ColumnFixed, glint.ColumnDenseFixed:
		if blockNum >= len(c.fixedBlocks) {
			return nil, false
		}
		base := c.fixedBlocks[blockNum]
		start := int(base) + idxInBlock*c.fixedLen
		if start+c.fixedLen > len(c.data) {
			return nil, false
		}
		buf := append([]byte(nil), c.data[start:start+c.fixedLen]...)
		off := int64(start)
		if c.header.Properties&glint.PropEncrypted != 0 {
			_ = c.cipher.Decrypt(off, buf)
		}
		return buf, true
	case glint.ColumnSparse:
		if blockNum >= len(c.sparseBlocks) {
			return nil, false
		}
		b := c.sparseBlocks[blockNum]
		if idxInBlock >= b.count {
			return nil, false
		}
		delta := enc.FastPackAt(b.deltas, idxInBlock, b.bits)
		expected := b.avg * uint64(idxInBlock)
		start := int(b.addr) + int(int64(expected)+enc.ZigzagDecode(delta))
		size := int(b.avg)
		if idxInBlock == b.count-1 {
			size = int(b.lastSize)
		} else {
			nextDelta := enc.FastPackAt(b.deltas, idxInBlock+1, b.bits)
			nextExpected := b.avg * uint64(idxInBlock+1)
			nextStart := int(b.addr) + int(int64(nextExpected)+enc.ZigzagDecode(nextDelta))
			size = nextStart - start
		}
		if start+size > len(c.data) || size < 0 {
			return nil, false
		}
		buf := append([]byte(nil), c.data[start:start+size]...)
		off := int64(start)
		if c.header.Properties&glint.PropEncrypted != 0 {
			_ = c.cipher.Decrypt(off, buf)
		}
		return buf, true
	}
	return nil, false
}

// Get returns the value stored for doc, or ok=false if doc has no
// value in this column (Mask columns never have a value; Get on a
// Mask column reports membership via the returned bool with a nil
// value).
func (c *Column) Get(doc glint.DocID) (value []byte, ok bool) {
	if c.header.Type == glint.ColumnMask {
		if c.docBitmap == nil {
			return nil, false
		}
		return nil, c.docBitmap.Contains(uint32(doc))
	}
	if c.docBitmap != nil && !c.docBitmap.Contains(uint32(doc)) {
		return nil, false
	}
	blockNum := int(doc) / blockDocs
	idxInBlock, ok := c.indexInBlock(blockNum, uint32(doc))
	if !ok {
		return nil, false
	}
	return c.blockValue(uint32(doc), blockNum, idxInBlock)
}

// indexInBlock returns the position of doc within block blockNum.
// Without an explicit bitmap index the column is dense (every doc in
// [MinDoc, MinDoc+DocsCount) has a value); with one, the bitmap gives
// the rank directly.
func (c *Column) indexInBlock(blockNum int, doc uint32) (int, bool) {
	if c.docBitmap != nil {
		return c.rankWithinBlock(blockNum, doc)
	}
	if doc < uint32(c.header.MinDoc) {
		return 0, false
	}
	// Dense, gap-free column: every doc from this block's first
	// present doc up to doc itself has a value, so the array index is
	// just the distance from whichever comes later, the block's
	// absolute start or the column's first doc (only relevant for
	// block 0, when MinDoc doesn't fall on a block boundary).
	blockStart := uint32(blockNum * blockDocs)
	first := blockStart
	if uint32(c.header.MinDoc) > first {
		first = uint32(c.header.MinDoc)
	}
	return int(doc - first), true
}

func (c *Column) rankWithinBlock(blockNum int, doc uint32) (int, bool) {
	it := bitmap.NewIterator(c.docBitmap)
	rank := -1
	i := 0
	blockStart := uint32(blockNum * blockDocs)
	blockEnd := blockStart + blockDocs
	for it.Next() {
		v := it.Value()
		if v < blockStart {
			i++
			continue
		}
		if v >= blockEnd {
			break
		}
		if v == doc {
			rank = i - c.firstRankOfBlock(blockNum)
			return rank, true
		}
		i++
	}
	return 0, false
}

// firstRankOfBlock returns how many set bits precede blockNum's first
// doc; cached per-call here for simplicity since columnstore reads in
// Glint are dominated by forward iteration rather than scattered Get.
func (c *Column) firstRankOfBlock(blockNum int) int {
	it := bitmap.NewIterator(c.docBitmap)
	blockStart := uint32(blockNum * blockDocs)
	n := 0
	for it.Next() {
		if it.Value() >= blockStart {
			break
		}
		n++
	}
	return n
}

// Iterator walks a column's (doc, value) pairs in ascending doc order.
type Iterator struct {
	col       *Column
	hint      Hint
	mask      *bitmap.Bitmap
	bmIt      *bitmap.Iterator
	maskIt    *bitmap.Iterator
	rank      int
	blockNum  int
	idxInBlk  int
	done      bool
	started   bool
	doc       glint.DocID
	value     []byte
	prev      glint.DocID
	havePrev  bool
}

// Iterator returns an iterator over the column using the given hint.
// mask is only consulted when hint is HintMask; it restricts iteration
// to docs present in both the column and mask.
func (c *Column) Iterator(hint Hint, mask *bitmap.Bitmap) *Iterator {
	it := &Iterator{col: c, hint: hint, mask: mask, blockNum: -1}
	if c.docBitmap != nil {
		it.bmIt = bitmap.NewIterator(c.docBitmap)
	}
	if hint == HintMask && mask != nil {
		it.maskIt = bitmap.NewIterator(mask)
	}
	return it
}

// Next advances the iterator, returning false once exhausted.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	for {
		var doc uint32
		var ok bool
		if it.bmIt != nil {
			ok = it.bmIt.Next()
			if ok {
				doc = it.bmIt.Value()
			}
		} else {
			doc = uint32(it.col.header.MinDoc) + uint32(it.rank)
			ok = it.rank < int(it.col.header.DocsCount)
			it.rank++
		}
		if !ok {
			it.done = true
			return false
		}
		if it.hint == HintMask && it.mask != nil && !it.mask.Contains(doc) {
			continue
		}
		if it.col.header.Type == glint.ColumnMask {
			if it.hint == HintPrevDoc || it.hint == HintConsolidation {
				it.prev = it.doc
				it.havePrev = it.started
			}
			it.doc = glint.DocID(doc)
			it.value = nil
			it.started = true
			return true
		}
		blockNum := int(doc) / blockDocs
		idxInBlock, ok := it.col.indexInBlock(blockNum, doc)
		if !ok {
			continue
		}
		v, ok := it.col.blockValue(doc, blockNum, idxInBlock)
		if !ok {
			continue
		}
		if it.hint == HintPrevDoc || it.hint == HintConsolidation {
			it.prev = it.doc
			it.havePrev = it.started
		}
		it.doc = glint.DocID(doc)
		it.value = v
		it.started = true
		return true
	}
}

// Doc returns the current document id.
func (it *Iterator) Doc() glint.DocID { return it.doc }

// Value returns the current document's payload (nil for Mask columns,
// which only carry membership).
func (it *Iterator) Value() []byte { return it.value }

// Prev returns the document id visited immediately before Doc, valid
// only when the iterator was built with HintPrevDoc or
// HintConsolidation.
func (it *Iterator) Prev() (glint.DocID, bool) { return it.prev, it.havePrev }

// Seek advances the iterator to the first doc >= target. If the
// current doc is already >= target, the iterator stays where it is.
func (it *Iterator) Seek(target glint.DocID) bool {
	if it.done {
		return false
	}
	if it.started && it.doc >= target {
		return true
	}
	for it.Next() {
		if it.doc >= target {
			return true
		}
	}
	return false
}
