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

// Package postings implements Glint's per-term postings list: blocks
// of 128 bit-packed doc deltas, an optional parallel frequency block,
// and optional position/offset/payload streams, plus a skip-list
// companion for block-granularity seeking.
//
// Grounded on bluge_segment_api/segment.go's PostingsIterator contract
// (Next/Advance/Count/Empty/Close) and ice/v2/intdecoder.go's delta
// block decoding.
package postings

import (
	"github.com/nakama-labs/glint/enc"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/glinterr"
	"github.com/nakama-labs/glint/skiplist"
)

// BlockDocs is the number of documents packed into one postings
// block.
const BlockDocs = 128

// Writer accumulates one term's postings in ascending DocID order.
type Writer struct {
	features glint.FeatureSet
	docs     []uint32
	freqs    []uint64
	posLists [][]glint.Position
}

// NewWriter returns a Writer honoring the given field feature set.
func NewWriter(features glint.FeatureSet) *Writer {
	return &Writer{features: features}
}

// Add appends one document's posting. positions is ignored unless the
// writer's feature set includes FeaturePos.
func (w *Writer) Add(doc glint.DocID, freq uint64, positions []glint.Position) error {
	if len(w.docs) > 0 && uint32(doc) <= w.docs[len(w.docs)-1] {
		return glinterr.Wrap(glinterr.ErrIllegalArgument, "postings: doc ids must be strictly ascending", nil)
	}
	w.docs = append(w.docs, uint32(doc))
	if w.features.Has(glint.FeatureFreq) {
		w.freqs = append(w.freqs, freq)
	}
	if w.features.Has(glint.FeaturePos) {
		w.posLists = append(w.posLists, positions)
	}
	return nil
}

// Block is one sealed 128-doc postings block.
type Block struct {
	LastDoc  uint32
	DocCount int
	DocDelta []byte // bit-packed deltas, width in bits recorded in Bits
	Bits     uint
	Freqs    []byte
	FreqBits uint
	Positions [][]glint.Position // only set when FeaturePos; kept decoded for lazy per-doc access
}

// Sealed is a term's complete postings list plus its skip list,
// recorded one level-0 entry per block (block pointer is the block's
// own index, serialized unchanged, and Advance jumps to the block at
// that index).
type Sealed struct {
	Meta      glint.TermMeta
	Blocks    []Block
	SkipLevels [][]skiplist.Record
	SkipN     int
}

// Skip builds a fresh Reader over the sealed skip levels.
func (s Sealed) Skip() *skiplist.Reader { return skiplist.NewReader(s.SkipLevels, s.SkipN) }

// skipN is the per-level promotion multiplier used for every postings
// skip list; skip0 (level-0 interval) is implicitly 1 since postings
// already reserves one skip record per 128-doc block.
const skipN = 4

// Finish seals the writer into 128-doc blocks.
func (w *Writer) Finish() Sealed {
	var meta glint.TermMeta
	var blocks []Block
	skipWriter := skiplist.NewWriter(1, skipN)

	for i := 0; i < len(w.docs); i += BlockDocs {
		end := i + BlockDocs
		if end > len(w.docs) {
			end = len(w.docs)
		}
		chunk := w.docs[i:end]
		deltas := make([]uint64, len(chunk))
		prev := uint32(0)
		if i > 0 {
			prev = w.docs[i-1]
		}
		for j, d := range chunk {
			deltas[j] = uint64(d - prev)
			prev = d
		}
		bits := uint(0)
		if !enc.AllEqualZero(deltas) {
			bits = enc.BitsRequired(deltas)
		}
		blk := Block{
			LastDoc:  chunk[len(chunk)-1],
			DocCount: len(chunk),
			DocDelta: enc.Pack(deltas, bits),
			Bits:     bits,
		}
		if w.features.Has(glint.FeatureFreq) {
			freqChunk := w.freqs[i:end]
			fbits := enc.BitsRequired(freqChunk)
			blk.Freqs = enc.Pack(freqChunk, fbits)
			blk.FreqBits = fbits
			for _, f := range freqChunk {
				meta.TotalFreq += f
			}
		}
		if w.features.Has(glint.FeaturePos) {
			blk.Positions = w.posLists[i:end]
		}
		blocks = append(blocks, blk)
		skipWriter.Append(uint64(blk.LastDoc), uint64(len(blocks)-1), 0)
		meta.DocsCount += uint64(len(chunk))
	}
	return Sealed{Meta: meta, Blocks: blocks, SkipLevels: skipWriter.Levels(), SkipN: skipN}
}
