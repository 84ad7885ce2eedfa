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

package termdict

import (
	"bytes"
	"sort"

	"github.com/blevesearch/vellum"

	"github.com/nakama-labs/glint/glinterr"
)

// Automaton is the state-transition matcher an automaton-intersection
// iterator prunes sub-blocks with. Its shape matches
// vellum.Automaton so a *vellum-backed* matcher (prefix, fuzzy/edit
// distance, wildcard) plugs in directly; the query package's own prefix
// driver supplies a hand-written automaton, and NewAutomatonIterator
// accepts any other implementation from the caller.
type Automaton interface {
	Start() int
	IsMatch(int) bool
	CanMatch(int) bool
	Accept(int, byte) int
}

// SequentialIterator supports Next, SeekExact, SeekGE, and exposes the
// entry's cookie for postings replay.
type SequentialIterator struct {
	terms []Entry
	pos   int
}

// Sequential returns a forward iterator over every term in the
// dictionary, positioned before the first entry.
func (d *Dictionary) Sequential() *SequentialIterator {
	return &SequentialIterator{terms: d.sortedTerms(), pos: -1}
}

// Next advances to the next term, returning false once exhausted.
func (it *SequentialIterator) Next() bool {
	if it.pos+1 >= len(it.terms) {
		it.pos = len(it.terms)
		return false
	}
	it.pos++
	return true
}

// Current returns the entry the iterator is positioned at.
func (it *SequentialIterator) Current() Entry { return it.terms[it.pos] }

// SeekGE positions the iterator at the first term >= target.
func (it *SequentialIterator) SeekGE(target []byte) bool {
	idx := sort.Search(len(it.terms), func(i int) bool {
		return bytes.Compare(it.terms[i].Term, target) >= 0
	})
	it.pos = idx
	return idx < len(it.terms)
}

// SeekExact positions the iterator exactly at target, or returns false
// without moving if target is absent.
func (it *SequentialIterator) SeekExact(target []byte) bool {
	idx := sort.Search(len(it.terms), func(i int) bool {
		return bytes.Compare(it.terms[i].Term, target) >= 0
	})
	if idx < len(it.terms) && bytes.Equal(it.terms[idx].Term, target) {
		it.pos = idx
		return true
	}
	return false
}

// RandomOnlyIterator supports only SeekExact, omitting the block-state
// bookkeeping a Sequential iterator carries, at the cost of
// disallowing Next.
type RandomOnlyIterator struct {
	dict *Dictionary
}

// RandomOnly returns a seek-only iterator backed directly by the FST.
func (d *Dictionary) RandomOnly() *RandomOnlyIterator { return &RandomOnlyIterator{dict: d} }

// SeekExact looks up term exactly.
func (it *RandomOnlyIterator) SeekExact(term []byte) (Entry, bool, error) {
	return it.dict.SeekExact(term)
}

// Next is not supported by a random-only iterator.
func (it *RandomOnlyIterator) Next() (Entry, error) {
	return Entry{}, glinterr.Wrap(glinterr.ErrNotSupported, "termdict: Next on random-only iterator", nil)
}

// AutomatonIterator walks only the terms an Automaton accepts,
// pruning whole sub-blocks whose shared prefix the automaton already
// rejects.
type AutomatonIterator struct {
	dict *Dictionary
	aut  Automaton
	fit  *vellum.FSTIterator
	done bool
}

// vellumAutomatonAdapter adapts Automaton to vellum.Automaton so an
// external matcher can drive the FST's own state-pruning Search.
type vellumAutomatonAdapter struct{ a Automaton }

func (v vellumAutomatonAdapter) Start() int                { return v.a.Start() }
func (v vellumAutomatonAdapter) IsMatch(s int) bool         { return v.a.IsMatch(s) }
func (v vellumAutomatonAdapter) CanMatch(s int) bool        { return v.a.CanMatch(s) }
func (v vellumAutomatonAdapter) Accept(s int, b byte) int   { return v.a.Accept(s, b) }
func (v vellumAutomatonAdapter) WillAlwaysMatch(int) bool   { return false }

// AutomatonSearch returns an iterator restricted to terms aut accepts
// within [startInclusive, endExclusive); either bound may be nil for
// unbounded.
func (d *Dictionary) AutomatonSearch(aut Automaton, startInclusive, endExclusive []byte) (*AutomatonIterator, error) {
	if d.fst == nil {
		return &AutomatonIterator{done: true}, nil
	}
	fit, err := d.fst.Search(vellumAutomatonAdapter{aut}, startInclusive, endExclusive)
	if err != nil && err != vellum.ErrIteratorDone {
		return nil, glinterr.Wrap(glinterr.ErrIndex, "termdict: automaton search", err)
	}
	return &AutomatonIterator{dict: d, aut: aut, fit: fit, done: err == vellum.ErrIteratorDone}, nil
}

// Next advances to the next matching term.
func (it *AutomatonIterator) Next() (Entry, bool, error) {
	if it.done || it.fit == nil {
		return Entry{}, false, nil
	}
	_, cookie := it.fit.Current()
	e, ok := it.dict.entryAt(cookie)
	if err := it.fit.Next(); err != nil {
		if err == vellum.ErrIteratorDone {
			it.done = true
		} else {
			return Entry{}, false, glinterr.Wrap(glinterr.ErrIndex, "termdict: automaton next", err)
		}
	}
	return e, ok, nil
}
