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
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/scoring"
)

// Conjunction matches documents every sub-iterator matches, advancing
// the others toward whichever is currently furthest ahead rather than
// calling Next on each in lockstep.
//
// Grounded on bluge's search_conjunction.go ConjunctionSearcher: the
// sub-iterator furthest along (maxIDIdx there) sets the new target and
// every other sub-iterator seeks to it instead of scanning forward one
// doc at a time.
type Conjunction struct {
	subs   []Iterator
	merger scoring.Merger
	doc    glint.DocID
}

// NewConjunction returns a Conjunction over subs. At least one
// sub-iterator is required.
func NewConjunction(merger scoring.Merger, subs ...Iterator) *Conjunction {
	return &Conjunction{subs: subs, merger: merger}
}

func (c *Conjunction) Doc() glint.DocID { return c.doc }

func (c *Conjunction) Score() float64 {
	scores := make([]float64, len(c.subs))
	for i, s := range c.subs {
		scores[i] = s.Score()
	}
	return c.merger(scores)
}

// Next advances every sub-iterator to the next position all of them
// agree on.
func (c *Conjunction) Next() (glint.DocID, error) {
	if c.doc == glint.EOFDocID {
		return glint.EOFDocID, nil
	}
	next := c.doc + 1
	if c.doc == glint.InvalidDocID {
		next = glint.MinDocID
	}
	return c.Advance(next)
}

// Advance seeks every sub-iterator to the first doc >= target that all
// of them match.
func (c *Conjunction) Advance(target glint.DocID) (glint.DocID, error) {
	if len(c.subs) == 0 {
		c.doc = glint.EOFDocID
		return glint.EOFDocID, nil
	}
	candidate := target
	for {
		agree := true
		for _, s := range c.subs {
			doc, err := s.Advance(candidate)
			if err != nil {
				return glint.EOFDocID, err
			}
			if doc == glint.EOFDocID {
				c.doc = glint.EOFDocID
				return glint.EOFDocID, nil
			}
			if doc != candidate {
				candidate = doc
				agree = false
			}
		}
		if agree {
			c.doc = candidate
			return candidate, nil
		}
	}
}
