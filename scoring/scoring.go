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

// Package scoring implements the score-function half of spec.md
// §4.10's scorer triple: field and term collectors live next to the
// segment readers that feed them (package query), but the statistics
// they accumulate, and the TF-IDF/BM25 functions that consume them,
// are pure and live here.
//
// Grounded on bluge_segment_api/stats.go's CollectionStats shape and
// on original_source/core/search's "order" scoring pipeline, whose
// per-sub-scorer score buffer this package's Merger mirrors as a
// slice-reducing function rather than a single scalar.
package scoring

import (
	"math"

	"github.com/nakama-labs/glint/glint"
)

// Stats is the pre-computed per-term, per-field statistics a
// ScoreFunc consumes at match time; collected once per (segment,
// term) during query preparation, not per document.
type Stats struct {
	DocFreq       uint64
	TotalTermFreq uint64
	Collection    glint.CollectionStats
}

// ScoreFunc computes one sub-scorer's contribution for a matching
// document. freq is the term's frequency in the document; norm is the
// field's raw token count for the document (0 when the field carries
// no norm column).
type ScoreFunc interface {
	Score(freq, norm uint64, stats Stats) float64
}

// TFIDF is the classic term-frequency/inverse-document-frequency score
// function. Normalize enables the 1/sqrt(norm) field-length
// normalization term.
type TFIDF struct {
	Normalize bool
}

func (f TFIDF) Score(freq, norm uint64, stats Stats) float64 {
	if stats.DocFreq == 0 || stats.Collection.DocCount == 0 {
		return 0
	}
	idf := 1.0 + math.Log(float64(stats.Collection.DocCount)/float64(stats.DocFreq+1))
	score := math.Sqrt(float64(freq)) * idf * idf
	if f.Normalize && norm > 0 {
		score /= math.Sqrt(float64(norm))
	}
	return score
}

// BM25 is the Okapi BM25 score function; K1 controls term-frequency
// saturation and B controls field-length normalization strength.
type BM25 struct {
	K1 float64
	B  float64
}

// DefaultBM25 returns the conventional K1=1.2, B=0.75 parameterization.
func DefaultBM25() BM25 { return BM25{K1: 1.2, B: 0.75} }

func (f BM25) Score(freq, norm uint64, stats Stats) float64 {
	if stats.DocFreq == 0 || stats.Collection.DocCount == 0 || freq == 0 {
		return 0
	}
	n := float64(stats.Collection.DocCount)
	df := float64(stats.DocFreq)
	idf := math.Log(1.0 + (n-df+0.5)/(df+0.5))

	avgFieldLen := 1.0
	if stats.Collection.DocCount > 0 && stats.Collection.SumTotalTermFreq > 0 {
		avgFieldLen = float64(stats.Collection.SumTotalTermFreq) / n
	}
	lengthNorm := 1.0
	if avgFieldLen > 0 {
		lengthNorm = (1 - f.B) + f.B*(float64(norm)/avgFieldLen)
	}

	tf := float64(freq)
	return idf * (tf * (f.K1 + 1)) / (tf + f.K1*lengthNorm)
}

// Scorer binds a ScoreFunc to the statistics already collected for one
// term and a query-supplied boost, so a query iterator only needs to
// supply the per-document freq/norm at match time.
type Scorer struct {
	Stats Stats
	Func  ScoreFunc
	Boost float64
}

// NewScorer returns a Scorer with a boost of 1.
func NewScorer(fn ScoreFunc, stats Stats) Scorer {
	return Scorer{Stats: stats, Func: fn, Boost: 1}
}

// Score computes this term's contribution for the current document. A
// nil Func (the "all"/column-existence drivers of spec.md §4.10)
// degenerates to propagating only the boost.
func (s Scorer) Score(freq, norm uint64) float64 {
	if s.Func == nil {
		return s.Boost
	}
	return s.Boost * s.Func.Score(freq, norm, s.Stats)
}

// Merger reduces a composite query's tuple of sub-scores into one
// comparable value.
type Merger func(scores []float64) float64

// SumMerger adds every sub-score, matching a plain disjunction/
// conjunction's default scoring behavior.
func SumMerger(scores []float64) float64 {
	var total float64
	for _, s := range scores {
		total += s
	}
	return total
}

// MaxMerger takes the highest sub-score, useful for a dis_max-style
// composite query.
func MaxMerger(scores []float64) float64 {
	var max float64
	for i, s := range scores {
		if i == 0 || s > max {
			max = s
		}
	}
	return max
}
