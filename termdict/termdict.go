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

// Package termdict implements Glint's per-field term dictionary:
// blocks of up to 36 terms sharing a prefix, a three-state classifier
// distinguishing leaf terms from sub-block pointers, and a sorted-term
// index backed by a vellum FST for automaton-driven iteration.
//
// Grounded on ice/dict.go's Dictionary, which wraps a *vellum.FST built
// over the field's sorted term set, mapping each term to an opaque
// "postings cookie" (here a block/offset pair into the dictionary's own
// block stream) rather than directly to a postings file offset.
package termdict

import (
	"bytes"

	"github.com/blevesearch/vellum"

	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/glinterr"
)

// MaxBlockTerms is the maximum number of terms grouped into one
// prefix-compressed block.
const MaxBlockTerms = 36

// Classifier is the three-state tag spec.md §4.5 assigns to every term
// dictionary entry.
type Classifier uint8

const (
	// LeafTerm is an ordinary term with postings but no sub-block.
	LeafTerm Classifier = iota
	// SubBlock is a pointer to a nested block sharing this entry's
	// prefix, with no postings of its own.
	SubBlock
	// TermWithSubs is a term that itself has postings AND roots a
	// nested sub-block (e.g. "cat" has postings and also prefixes
	// "catalog", "category").
	TermWithSubs
)

// Entry is one term dictionary row before block packing.
type Entry struct {
	Term      []byte
	Class     Classifier
	Meta      glint.TermMeta
	Postings  uint64 // opaque postings-stream pointer, meaningful to the segment reader
	SubBlock  uint32 // index into Dictionary.blocks, valid when Class != LeafTerm
}

// Block is one prefix-compressed group of up to MaxBlockTerms entries.
type Block struct {
	Prefix  []byte
	Entries []Entry
}

// Dictionary is a sealed, queryable term dictionary for one field.
type Dictionary struct {
	blocks   []Block
	fst      *vellum.FST
	fstBytes []byte // the raw FST image, kept for Bytes()/persistence
	min, max []byte
	size     uint64 // distinct term count
	docs     uint64 // total docs referencing any term (for CollectionStats)
}

// FSTBytes returns the dictionary's backing FST image, as produced by
// vellum.Builder, for the "ti" (term index) file.
func (d *Dictionary) FSTBytes() []byte { return d.fstBytes }

// Builder accumulates terms in ascending order and seals a Dictionary.
type Builder struct {
	entries []Entry
	docs    uint64
}

// NewBuilder returns an empty term dictionary builder.
func NewBuilder() *Builder { return &Builder{} }

// Add appends a term; terms must be inserted in ascending
// lexicographic order, matching vellum.Builder.Insert's requirement.
func (b *Builder) Add(term []byte, meta glint.TermMeta, postings uint64) error {
	if len(b.entries) > 0 && bytes.Compare(term, b.entries[len(b.entries)-1].Term) <= 0 {
		return glinterr.Wrap(glinterr.ErrIllegalArgument, "termdict: terms must be strictly ascending", nil)
	}
	b.entries = append(b.entries, Entry{Term: append([]byte(nil), term...), Class: LeafTerm, Meta: meta, Postings: postings})
	b.docs += meta.DocsCount
	return nil
}

// Finish groups entries into prefix blocks, classifies them, and
// builds the backing FST mapping each term to its (block, index)
// cookie packed into a uint64.
func (b *Builder) Finish() (*Dictionary, error) {
	d := &Dictionary{docs: b.docs, size: uint64(len(b.entries))}
	if len(b.entries) == 0 {
		return d, nil
	}
	d.min = b.entries[0].Term
	d.max = b.entries[len(b.entries)-1].Term

	for i := 0; i < len(b.entries); i += MaxBlockTerms {
		end := i + MaxBlockTerms
		if end > len(b.entries) {
			end = len(b.entries)
		}
		group := b.entries[i:end]
		prefix := commonPrefix(group)
		blk := Block{Prefix: prefix, Entries: append([]Entry(nil), group...)}
		d.blocks = append(d.blocks, blk)
	}
	classifyBlocks(d.blocks)

	var buf bytes.Buffer
	fb, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, glinterr.Wrap(glinterr.ErrIndex, "termdict: fst builder", err)
	}
	for blockIdx, blk := range d.blocks {
		for entryIdx, e := range blk.Entries {
			cookie := packCookie(uint32(blockIdx), uint32(entryIdx))
			if err := fb.Insert(e.Term, cookie); err != nil {
				return nil, glinterr.Wrap(glinterr.ErrIndex, "termdict: fst insert", err)
			}
		}
	}
	if err := fb.Close(); err != nil {
		return nil, glinterr.Wrap(glinterr.ErrIndex, "termdict: fst close", err)
	}
	d.fstBytes = buf.Bytes()
	fst, err := vellum.Load(d.fstBytes)
	if err != nil {
		return nil, glinterr.Wrap(glinterr.ErrIndex, "termdict: fst load", err)
	}
	d.fst = fst
	return d, nil
}

func commonPrefix(entries []Entry) []byte {
	if len(entries) == 0 {
		return nil
	}
	p := entries[0].Term
	for _, e := range entries[1:] {
		p = sharedPrefix(p, e.Term)
		if len(p) == 0 {
			break
		}
	}
	return append([]byte(nil), p...)
}

func sharedPrefix(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// classifyBlocks assigns SubBlock/TermWithSubs to entries whose term is
// itself the shared prefix of the following block (the "cat" rooting
// "catalog"/"category" case), leaving everything else LeafTerm.
func classifyBlocks(blocks []Block) {
	for bi := range blocks {
		for ei := range blocks[bi].Entries {
			e := &blocks[bi].Entries[ei]
			if bi+1 < len(blocks) && bytes.Equal(e.Term, blocks[bi+1].Prefix) && len(blocks[bi+1].Prefix) > 0 {
				if e.Postings != 0 {
					e.Class = TermWithSubs
				} else {
					e.Class = SubBlock
				}
				e.SubBlock = uint32(bi + 1)
			}
		}
	}
}

func packCookie(blockIdx, entryIdx uint32) uint64 {
	return uint64(blockIdx)<<32 | uint64(entryIdx)
}

func unpackCookie(cookie uint64) (blockIdx, entryIdx uint32) {
	return uint32(cookie >> 32), uint32(cookie & 0xFFFFFFFF)
}

// Min returns the lexicographically smallest term, or nil if empty.
func (d *Dictionary) Min() []byte { return d.min }

// Max returns the lexicographically largest term, or nil if empty.
func (d *Dictionary) Max() []byte { return d.max }

// Size returns the number of distinct terms.
func (d *Dictionary) Size() uint64 { return d.size }

// DocsCount returns the total doc references across every term,
// feeding scoring.CollectionStats.
func (d *Dictionary) DocsCount() uint64 { return d.docs }

// entryAt resolves a cookie back to its Entry.
func (d *Dictionary) entryAt(cookie uint64) (Entry, bool) {
	blockIdx, entryIdx := unpackCookie(cookie)
	if int(blockIdx) >= len(d.blocks) {
		return Entry{}, false
	}
	blk := d.blocks[blockIdx]
	if int(entryIdx) >= len(blk.Entries) {
		return Entry{}, false
	}
	return blk.Entries[entryIdx], true
}

// SeekExact looks up term exactly, the contract shared by both
// sequential and random-only iterators.
func (d *Dictionary) SeekExact(term []byte) (Entry, bool, error) {
	if d.fst == nil {
		return Entry{}, false, nil
	}
	cookie, exists, err := d.fst.Get(term)
	if err != nil {
		return Entry{}, false, glinterr.Wrap(glinterr.ErrIndex, "termdict: fst get", err)
	}
	if !exists {
		return Entry{}, false, nil
	}
	e, ok := d.entryAt(cookie)
	return e, ok, nil
}

// BitUnion resolves each cookie back to its Entry and passes it to
// union, which decodes that term's postings doc-id set and merges it
// into the caller's accumulator. This package only resolves cookies;
// the doc-id decode is left to the callback, so termdict does not
// import postings.
func (d *Dictionary) BitUnion(cookies []uint64, union func(Entry) error) error {
	for _, c := range cookies {
		e, ok := d.entryAt(c)
		if !ok {
			return glinterr.Wrap(glinterr.ErrOutOfRange, "termdict: unknown cookie", nil)
		}
		if err := union(e); err != nil {
			return err
		}
	}
	return nil
}

// sortedTerms is used by the sequential iterator's Next, which the
// FST alone does not give us cheaply without re-deriving vellum's own
// iterator (a flat slice rebuilt from the blocks on every call).
func (d *Dictionary) sortedTerms() []Entry {
	all := make([]Entry, 0, d.size)
	for _, b := range d.blocks {
		all = append(all, b.Entries...)
	}
	return all
}
