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

// Package query implements spec.md §4.10's iterator taxonomy over one
// segment.Reader: term, range/prefix/automaton, conjunction,
// disjunction, phrase, and the degenerate all/column-existence
// drivers, all behind a single Iterator contract.
//
// Grounded on bluge_segment_api/segment.go's PostingsIterator contract
// for Doc/Next/Advance, on
// heroiclabs-nakama/vendor/.../bluge/search/searcher's conjunction and
// disjunction searchers for the sorted-intersection and paired/n-ary
// union shapes, and on original_source/core/search/disjunction.hpp for
// the min-match-k block-bitmask eviction policies.
package query

import "github.com/nakama-labs/glint/glint"

// Iterator is the uniform contract every query driver satisfies,
// collapsing spec.md's {value, next, seek} plus attribute-provider
// shape down to Doc/Next/Advance/Score: Score folds in whatever
// attribute (a sub-scorer's term frequency and norm, or just a query
// boost) the concrete driver tracks.
//
// Seek (Advance here) is idempotent: calling it again with the same or
// a smaller target than the iterator's current doc is a no-op that
// returns the current doc. Advancing past the last document, or
// calling Next/Advance once EOF has been reached, is a terminal state:
// every later call returns glint.EOFDocID.
type Iterator interface {
	// Doc returns the current document, glint.InvalidDocID before the
	// first Next/Advance, or glint.EOFDocID once exhausted.
	Doc() glint.DocID
	// Next advances to the next matching document.
	Next() (glint.DocID, error)
	// Advance seeks to the first matching document >= target.
	Advance(target glint.DocID) (glint.DocID, error)
	// Score returns the current document's score. Undefined before the
	// first successful Next/Advance.
	Score() float64
}

// Count drains it, returning the number of documents it matches. Used
// by tests and by callers that only need a cardinality, not a ranked
// result set.
func Count(it Iterator) (int, error) {
	n := 0
	for {
		doc, err := it.Next()
		if err != nil {
			return n, err
		}
		if doc == glint.EOFDocID {
			return n, nil
		}
		n++
	}
}

// Collect drains it into a slice of (doc, score) pairs in iteration
// order. Intended for small result sets and tests; production callers
// typically feed a top-k collector instead.
type Hit struct {
	Doc   glint.DocID
	Score float64
}

func Collect(it Iterator) ([]Hit, error) {
	var hits []Hit
	for {
		doc, err := it.Next()
		if err != nil {
			return hits, err
		}
		if doc == glint.EOFDocID {
			return hits, nil
		}
		hits = append(hits, Hit{Doc: doc, Score: it.Score()})
	}
}
