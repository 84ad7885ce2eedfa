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

// Package columnstore implements Glint's per-document column storage:
// four physical layouts (Mask, DenseFixed, Fixed, Sparse) chosen by
// the writer per column at seal time, with O(log n) seek via a
// bitmap index and O(1) payload retrieval given a block's bit width
// and average value length.
//
// Chunking and per-value offset bookkeeping are grounded on
// ice/v2/docvalues.go's docValueReader (chunk offsets, per-chunk
// {DocNum, DocDvOffset} metadata, lazy chunk decoding) and
// ice/chunk.go's chunk-size heuristic, adapted from doc-value chunks
// of up to 1024 docs to the spec's fixed 64K-doc block.
package columnstore

import (
	"github.com/nakama-labs/glint/bitmap"
	"github.com/nakama-labs/glint/crypto"
	"github.com/nakama-labs/glint/enc"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/glinterr"
)

// blockDocs is the number of documents covered by one column block,
// matching bitmap.BlockDocs so a column's bitmap index and value
// blocks share the same chunking.
const blockDocs = bitmap.BlockDocs

// Writer builds one column. Prepare must be called with strictly
// ascending doc ids.
type Writer struct {
	fieldID  glint.FieldID
	name     string
	noName   bool
	cipher   crypto.Cipher
	docs     []uint32
	values   [][]byte
	fixedLen int // -1 once a variable length is observed
	anyValue bool
}

// NewWriter returns a Writer for the given field/column id. If name is
// non-empty it is stored (optionally encrypted) in the column index;
// noName columns omit the name entirely.
func NewWriter(fieldID glint.FieldID, name string, cipher crypto.Cipher) *Writer {
	if cipher == nil {
		cipher = crypto.Identity{}
	}
	return &Writer{fieldID: fieldID, name: name, noName: name == "", cipher: cipher, fixedLen: -2}
}

// Prepare appends value for doc. doc must be strictly greater than
// every previously prepared doc in this writer's lifetime (even
// across a Reset, which only undoes the most recent Prepare).
func (w *Writer) Prepare(doc uint32, value []byte) error {
	if len(w.docs) > 0 && doc <= w.docs[len(w.docs)-1] {
		return glinterr.Wrap(glinterr.ErrIllegalArgument, "columnstore: doc ids must be strictly ascending", nil)
	}
	w.docs = append(w.docs, doc)
	v := append([]byte(nil), value...)
	w.values = append(w.values, v)
	if len(value) > 0 {
		w.anyValue = true
	}
	switch {
	case w.fixedLen == -2:
		w.fixedLen = len(value)
	case w.fixedLen != len(value):
		w.fixedLen = -1
	}
	return nil
}

// Reset rolls back the most recently prepared value, the observable
// sequence "prepare -> reset -> prepare(next_key)" spec.md §9 calls
// out as an open question for the sparse-bitmap writer; Glint
// preserves exactly that sequence and does not attempt to infer
// additional invariants beyond it.
func (w *Writer) Reset() {
	if len(w.docs) == 0 {
		return
	}
	last := w.values[len(w.docs)-1]
	w.docs = w.docs[:len(w.docs)-1]
	w.values = w.values[:len(w.values)-1]
	if len(last) > 0 {
		w.anyValue = stillAnyValue(w.values)
	}
	w.fixedLen = recomputeFixedLen(w.values)
}

func stillAnyValue(values [][]byte) bool {
	for _, v := range values {
		if len(v) > 0 {
			return true
		}
	}
	return false
}

func recomputeFixedLen(values [][]byte) int {
	if len(values) == 0 {
		return -2
	}
	l := len(values[0])
	for _, v := range values[1:] {
		if len(v) != l {
			return -1
		}
	}
	return l
}

// Sealed is the result of Finish: a column header plus the byte
// regions that go into the "cs" (data) and "csi" (index) files.
type Sealed struct {
	Header     glint.ColumnHeader
	DataBytes  []byte
	IndexBytes []byte
}

// Finish seals the writer, selecting Mask/Fixed/Sparse (DenseFixed is
// only produced by the merge writer's contiguous-output path; see
// NewDenseFixedBuilder) based on the observed values.
func (w *Writer) Finish() Sealed {
	if !w.anyValue {
		return w.finishMask()
	}
	if w.fixedLen >= 0 {
		return w.finishFixed()
	}
	return w.finishSparse()
}

func (w *Writer) docBitmap() (*bitmap.Bitmap, []byte) {
	b := bitmap.NewBuilder()
	for _, d := range w.docs {
		_ = b.Add(d)
	}
	return b.Finish()
}

// hasGaps reports whether this column's doc set skips any id in
// [MinDoc, MaxDoc]; a dense, gap-free column needs no bitmap index
// since every block slot maps directly to doc-MinDoc.
func (w *Writer) hasGaps(bm *bitmap.Bitmap) bool {
	span := uint64(w.docs[len(w.docs)-1]-w.docs[0]) + 1
	return uint64(bm.Cardinality()) != span
}

func (w *Writer) finishMask() Sealed {
	bm, raw := w.docBitmap()
	hdr := glint.ColumnHeader{
		ID:         w.fieldID,
		DocsCount:  0,
		Type:       glint.ColumnMask,
		Properties: w.properties(),
	}
	_ = bm
	return Sealed{Header: hdr, IndexBytes: w.encodeName(raw)}
}

func (w *Writer) properties() glint.ColumnProperty {
	var p glint.ColumnProperty
	if _, ok := w.cipher.(crypto.Identity); !ok {
		p |= glint.PropEncrypted
	}
	if w.noName {
		p |= glint.PropNoName
	}
	return p
}

// encodeName prefixes the index bytes with the (possibly encrypted)
// column name, matching the writer contract's "encryption is applied
// to (a) the column name in the index and (b) each emitted value
// chunk keyed by its absolute byte offset".
func (w *Writer) encodeName(rest []byte) []byte {
	nameBytes := []byte(w.name)
	if !w.noName {
		buf := append([]byte(nil), nameBytes...)
		_ = w.cipher.Encrypt(0, buf)
		out := enc.PutUvarint(nil, uint64(len(buf)))
		out = append(out, buf...)
		return append(out, rest...)
	}
	return append(enc.PutUvarint(nil, 0), rest...)
}

func (w *Writer) finishFixed() Sealed {
	// one uint64 data offset per 64K-doc block, per spec.md §4.4 Fixed.
	numBlocks := int(w.docs[len(w.docs)-1])/blockDocs + 1
	blockOffsets := make([]uint64, numBlocks)
	data := make([]byte, 0, len(w.docs)*w.fixedLen)
	curBlock := -1
	for i, v := range w.values {
		b := int(w.docs[i]) / blockDocs
		if b != curBlock {
			blockOffsets[b] = uint64(len(data))
			curBlock = b
		}
		off := int64(len(data))
		chunk := append([]byte(nil), v...)
		_ = w.cipher.Encrypt(off, chunk)
		data = append(data, chunk...)
	}
	bm, bmRaw := w.docBitmap()
	needsBitmap := w.hasGaps(bm)
	idx := enc.PutUvarint(nil, uint64(w.fixedLen))
	idx = enc.PutUvarint(idx, uint64(len(blockOffsets)))
	for _, o := range blockOffsets {
		idx = enc.PutUvarint(idx, o)
	}
	var bitmapOff uint64
	if needsBitmap {
		bitmapOff = uint64(len(idx))
		idx = append(idx, bmRaw...)
	}
	hdr := glint.ColumnHeader{
		ID:                w.fieldID,
		MinDoc:            glint.DocID(w.docs[0]),
		DocsCount:         uint64(len(w.docs)),
		Type:              glint.ColumnFixed,
		Properties:        w.properties(),
		BitmapIndexOffset: bitmapOff,
	}
	return Sealed{Header: hdr, DataBytes: data, IndexBytes: w.encodeName(idx)}
}

// sparseBlockRecord is the on-disk per-block header for a Sparse
// column: addr (start offset of this block's data), avg (mean value
// length, used to reconstruct offsets as avg*i + delta), bits (width
// of the packed per-value deltas), lastSize (size of the block's
// final value, needed because avg*k alone cannot recover it).
type sparseBlockRecord struct {
	addr     uint64
	avg      uint64
	bits     uint
	deltas   []byte
	lastSize uint64
	count    int
}

func (w *Writer) finishSparse() Sealed {
	var data []byte
	var blocks []sparseBlockRecord
	i := 0
	for i < len(w.values) {
		blockNum := int(w.docs[i]) / blockDocs
		j := i
		for j < len(w.values) && int(w.docs[j])/blockDocs == blockNum {
			j++
		}
		blocks = append(blocks, w.sealSparseBlock(w.values[i:j], &data))
		i = j
	}
	bm, bmRaw := w.docBitmap()
	needsBitmap := w.hasGaps(bm)

	idx := enc.PutUvarint(nil, uint64(len(blocks)))
	for _, b := range blocks {
		idx = enc.PutUvarint(idx, b.addr)
		idx = enc.PutUvarint(idx, b.avg)
		idx = append(idx, byte(b.bits))
		idx = enc.PutUvarint(idx, uint64(b.count))
		idx = enc.PutUvarint(idx, b.lastSize)
		idx = enc.PutUvarint(idx, uint64(len(b.deltas)))
		idx = append(idx, b.deltas...)
	}
	var bitmapOff uint64
	if needsBitmap {
		bitmapOff = uint64(len(idx))
		idx = append(idx, bmRaw...)
	}
	hdr := glint.ColumnHeader{
		ID:                w.fieldID,
		MinDoc:            glint.DocID(w.docs[0]),
		DocsCount:         uint64(len(w.docs)),
		Type:              glint.ColumnSparse,
		Properties:        w.properties(),
		BitmapIndexOffset: bitmapOff,
	}
	return Sealed{Header: hdr, DataBytes: data, IndexBytes: w.encodeName(idx)}
}

func (w *Writer) sealSparseBlock(values [][]byte, data *[]byte) sparseBlockRecord {
	addr := uint64(len(*data))
	offsets := make([]uint64, len(values))
	var total uint64
	cur := uint64(0)
	for i, v := range values {
		offsets[i] = cur
		total += uint64(len(v))
		cur += uint64(len(v))
	}
	lastSize := uint64(len(values[len(values)-1]))
	avg := total / uint64(len(values))

	deltas := make([]uint64, len(offsets))
	for i, off := range offsets {
		expected := avg * uint64(i)
		deltas[i] = enc.ZigzagEncode(int64(off) - int64(expected))
	}
	var bits uint
	if !enc.AllEqualZero(deltas) {
		bits = enc.BitsRequired(deltas)
	}
	packed := enc.Pack(deltas, bits)

	for _, v := range values {
		off := int64(len(*data))
		chunk := append([]byte(nil), v...)
		_ = w.cipher.Encrypt(off, chunk)
		*data = append(*data, chunk...)
	}

	return sparseBlockRecord{addr: addr, avg: avg, bits: bits, deltas: packed, lastSize: lastSize, count: len(values)}
}
