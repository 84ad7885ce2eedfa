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

package query

import (
	"bytes"

	"github.com/nakama-labs/glint/scoring"
	"github.com/nakama-labs/glint/segment"
	"github.com/nakama-labs/glint/termdict"
)

// ScoredTermsLimit bounds how many distinct terms a range/prefix/
// automaton driver expands into sub-iterators; terms beyond the limit
// are not matched at all.
const ScoredTermsLimit = 1024

// collectRangeEntries walks dict's terms in order from lowerInclusive
// (the first term if nil) up to, but excluding, upperExclusive (no
// upper bound if nil), appending up to limit entries. Returns the
// entries and whether the term count was truncated by limit.
func collectRangeEntries(dict *termdict.Dictionary, lowerInclusive, upperExclusive []byte, limit int) ([]termdict.Entry, bool, error) {
	it := dict.Sequential()
	if lowerInclusive != nil {
		if !it.SeekGE(lowerInclusive) {
			return nil, false, nil
		}
	} else if !it.Next() {
		return nil, false, nil
	}

	var entries []termdict.Entry
	for {
		e := it.Current()
		if upperExclusive != nil && bytes.Compare(e.Term, upperExclusive) >= 0 {
			break
		}
		entries = append(entries, e)
		if len(entries) >= limit {
			return entries, true, nil
		}
		if !it.Next() {
			break
		}
	}
	return entries, false, nil
}

// NewRangeIterator matches every document whose field term falls in
// [lowerInclusive, upperExclusive) (either bound nil means unbounded
// on that side), building one TermIterator per matching term up to
// ScoredTermsLimit and merging them with a min-match-1 disjunction.
func NewRangeIterator(r *segment.Reader, field *segment.FieldReader, lowerInclusive, upperExclusive []byte, fn scoring.ScoreFunc, merger scoring.Merger) (Iterator, error) {
	entries, _, err := collectRangeEntries(field.Dict, lowerInclusive, upperExclusive, ScoredTermsLimit)
	if err != nil {
		return nil, err
	}
	return termIteratorsFor(r, field, entries, fn, merger)
}

// prefixAutomaton accepts exactly the byte strings beginning with
// prefix; it adapts termdict.Automaton the way a vellum automaton
// would, without vellum's regex/Levenshtein builders, since a fixed
// prefix check needs neither.
type prefixAutomaton struct{ prefix []byte }

// prefixAutomaton's states are 0..len(prefix): state len(prefix) is a
// sink accepting every further byte, representing "prefix already
// matched, term continues arbitrarily". State -1 is the dead state
// reached on a mismatched byte; it can never match.
func (p prefixAutomaton) Start() int          { return 0 }
func (p prefixAutomaton) IsMatch(s int) bool  { return s >= len(p.prefix) }
func (p prefixAutomaton) CanMatch(s int) bool { return s >= 0 }
func (p prefixAutomaton) Accept(s int, b byte) int {
	if s >= len(p.prefix) {
		return s
	}
	if p.prefix[s] != b {
		return -1
	}
	return s + 1
}

// NewPrefixIterator matches every document whose field term begins
// with prefix.
func NewPrefixIterator(r *segment.Reader, field *segment.FieldReader, prefix []byte, fn scoring.ScoreFunc, merger scoring.Merger) (Iterator, error) {
	return newAutomatonDriven(r, field, prefixAutomaton{prefix: append([]byte(nil), prefix...)}, prefix, nil, fn, merger)
}

// NewAutomatonIterator matches every document whose field term is
// accepted by aut, such as a compiled wildcard, regex, or
// Levenshtein-distance automaton built with vellum/levenshtein or
// vellum/regexp.
func NewAutomatonIterator(r *segment.Reader, field *segment.FieldReader, aut termdict.Automaton, startInclusive, endExclusive []byte, fn scoring.ScoreFunc, merger scoring.Merger) (Iterator, error) {
	return newAutomatonDriven(r, field, aut, startInclusive, endExclusive, fn, merger)
}

func newAutomatonDriven(r *segment.Reader, field *segment.FieldReader, aut termdict.Automaton, startInclusive, endExclusive []byte, fn scoring.ScoreFunc, merger scoring.Merger) (Iterator, error) {
	ait, err := field.Dict.AutomatonSearch(aut, startInclusive, endExclusive)
	if err != nil {
		return nil, err
	}
	var entries []termdict.Entry
	for {
		e, ok, err := ait.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		entries = append(entries, e)
		if len(entries) >= ScoredTermsLimit {
			break
		}
	}
	return termIteratorsFor(r, field, entries, fn, merger)
}

func termIteratorsFor(r *segment.Reader, field *segment.FieldReader, entries []termdict.Entry, fn scoring.ScoreFunc, merger scoring.Merger) (Iterator, error) {
	var subs []Iterator
	for _, e := range entries {
		ti, ok, err := NewTermIterator(r, field, e.Term, fn)
		if err != nil {
			return nil, err
		}
		if ok {
			subs = append(subs, ti)
		}
	}
	if len(subs) == 0 {
		return &emptyIterator{}, nil
	}
	return NewDisjunction(merger, subs...), nil
}
