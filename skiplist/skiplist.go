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

// Package skiplist implements the multi-level skip index over posting
// blocks described by the postings format: level 0 holds one record
// every skip0 docs, each higher level L holds one record every
// skipN^L docs, so Seek can descend from the top level instead of
// scanning block by block.
//
// This is an append-only cousin of the general ranked skip list used
// elsewhere in the corpus for ordered collections (level arrays with
// a forward pointer per level, promoted with decreasing probability
// per level). Here promotion is deterministic — a record is promoted
// to level L+1 exactly every skipN records of level L — because the
// writer appends strictly-ascending blocks rather than performing
// random-order inserts, so there is no need for randomized levelling
// to keep the structure balanced.
package skiplist

import "github.com/nakama-labs/glint/glinterr"

// Record is one skip entry: the last doc id covered by a posting
// block, a caller-defined pointer to that block (package postings
// stores the block's index), and small auxiliary stats (e.g. block
// max score) used by block-max iterators.
type Record struct {
	LastDoc uint64
	Pointer uint64
	Aux     uint64
}

// Writer accumulates Records level by level as a postings writer
// appends blocks in ascending doc order.
type Writer struct {
	skip0  int
	skipN  int
	levels [][]Record
	counts []int
}

// NewWriter returns a Writer with level-0 interval skip0 docs and
// per-level multiplier skipN (skip_n^L records promote to level L+1).
func NewWriter(skip0, skipN int) *Writer {
	if skip0 <= 0 {
		skip0 = 1
	}
	if skipN <= 1 {
		skipN = 2
	}
	return &Writer{skip0: skip0, skipN: skipN}
}

// Append records one posting block. lastDoc is the last (highest) doc
// id in the block; pointer locates the block in whatever terms the
// caller uses (package postings passes the block index); aux carries
// whatever block-level statistic the caller wants propagated (0 if
// none).
func (w *Writer) Append(lastDoc, pointer, aux uint64) {
	level := 0
	rec := Record{LastDoc: lastDoc, Pointer: pointer, Aux: aux}
	for {
		if level == len(w.levels) {
			w.levels = append(w.levels, nil)
			w.counts = append(w.counts, 0)
		}
		w.levels[level] = append(w.levels[level], rec)
		w.counts[level]++
		if w.counts[level]%w.skipN != 0 {
			break
		}
		level++
	}
}

// NumLevels returns how many levels have at least one record.
func (w *Writer) NumLevels() int { return len(w.levels) }

// Levels returns the built levels, finest (level 0) first. The
// returned slices are owned by the Writer and must not be mutated.
func (w *Writer) Levels() [][]Record { return w.levels }

// Reader walks a previously built (or deserialized) set of levels,
// supporting Reset (reposition every level to stream start, clearing
// per-level counters) and Seek (descend from the top level).
type Reader struct {
	levels [][]Record
	pos    []int // current index into each level
	skipN  int
}

// NewReader wraps levels (finest first, as produced by Writer.Levels)
// for querying. skipN must match the multiplier the Writer was built
// with, so Seek can translate a match at level L into a starting
// index at level L-1.
func NewReader(levels [][]Record, skipN int) *Reader {
	if skipN <= 1 {
		skipN = 2
	}
	r := &Reader{levels: levels, pos: make([]int, len(levels)), skipN: skipN}
	r.Reset()
	return r
}

// Reset repositions every level to its stream start and clears
// per-level doc counters.
func (r *Reader) Reset() {
	for i := range r.pos {
		r.pos[i] = 0
	}
}

// Seek scans from the top level down, following pointers while the
// next record at the current level does not overshoot target, and
// stops at level 0 once the block that must contain target has been
// isolated. It returns the level-0 record whose LastDoc is the first
// >= target, and ok=false if target is beyond every recorded block
// (the caller must then fall back to scanning the final block
// directly).
func (r *Reader) Seek(target uint64) (Record, bool) {
	if len(r.levels) == 0 {
		return Record{}, false
	}
	startIdx := 0
	for level := len(r.levels) - 1; level >= 0; level-- {
		recs := r.levels[level]
		i := startIdx
		for i < len(recs) && recs[i].LastDoc < target {
			i++
		}
		r.pos[level] = i
		if i >= len(recs) {
			if level == 0 {
				return Record{}, false
			}
			// Nothing at this level reaches target; the level below
			// must be scanned from its own last-promoted position.
			startIdx = len(recs) * r.skipN
			continue
		}
		// Level L's record i was promoted from level L-1's record at
		// index (i+1)*skipN-1; the first record level L-1 could still
		// contribute (one not already ruled out by a coarser level)
		// starts at i*skipN.
		startIdx = i * r.skipN
	}
	i := r.pos[0]
	if i >= len(r.levels[0]) {
		return Record{}, false
	}
	return r.levels[0][i], true
}

// ValidateLevels is a defensive check used by deserialization paths
// so segment readers can validate untrusted on-disk skip data before
// trusting it.
func ValidateLevels(levels [][]Record) error {
	for l := 1; l < len(levels); l++ {
		if len(levels[l]) > len(levels[l-1]) {
			return glinterr.Wrap(glinterr.ErrIndex, "skiplist: level sizes must shrink upward", nil)
		}
	}
	return nil
}
