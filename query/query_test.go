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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/scoring"
	"github.com/nakama-labs/glint/segment"
	"github.com/nakama-labs/glint/store"
)

func tokens(words ...string) []segment.Token {
	out := make([]segment.Token, len(words))
	for i, w := range words {
		out[i] = segment.Token{Term: []byte(w), Pos: uint64(i)}
	}
	return out
}

// buildSegment writes docs (each a space-separated "body" field) plus
// a "title" stored column, flushes to a fresh MemDirectory, and
// reopens it for querying.
func buildSegment(t *testing.T, docs ...string) *segment.Reader {
	t.Helper()
	w := segment.NewWriter(nil)
	features := glint.FeatureFreq | glint.FeaturePos
	for i, body := range docs {
		w.Begin()
		require.NoError(t, w.InsertIndexed("body", features, tokens(splitWords(body)...)))
		require.NoError(t, w.InsertStored("title", []byte(docs[i])))
		require.NoError(t, w.Commit())
	}
	dir := store.NewMemDirectory()
	meta, err := w.Flush(glint.SegmentMeta{Name: "seg", Version: 1}, dir)
	require.NoError(t, err)
	r, err := segment.Open(dir, meta, nil)
	require.NoError(t, err)
	return r
}

func splitWords(s string) []string {
	var words []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' {
			if i > start {
				words = append(words, s[start:i])
			}
			start = i + 1
		}
	}
	return words
}

func docIDs(t *testing.T, it Iterator) []glint.DocID {
	t.Helper()
	var docs []glint.DocID
	for {
		doc, err := it.Next()
		require.NoError(t, err)
		if doc == glint.EOFDocID {
			return docs
		}
		docs = append(docs, doc)
	}
}

func TestTermIteratorMatchesTermDocs(t *testing.T) {
	r := buildSegment(t, "the cat sat", "the dog ran", "the cat ran")
	field, ok := r.Field("body")
	require.True(t, ok)

	ti, found, err := NewTermIterator(r, field, []byte("cat"), scoring.TFIDF{})
	require.NoError(t, err)
	require.True(t, found)

	docs := docIDs(t, ti)
	require.Equal(t, []glint.DocID{1, 3}, docs)
}

func TestTermIteratorMissingTerm(t *testing.T) {
	r := buildSegment(t, "the cat sat")
	field, ok := r.Field("body")
	require.True(t, ok)

	_, found, err := NewTermIterator(r, field, []byte("giraffe"), scoring.TFIDF{})
	require.NoError(t, err)
	require.False(t, found)
}

func TestConjunctionIntersectsTerms(t *testing.T) {
	r := buildSegment(t, "cat dog", "cat bird", "dog bird", "cat dog bird")
	field, _ := r.Field("body")

	cat, _, err := NewTermIterator(r, field, []byte("cat"), nil)
	require.NoError(t, err)
	dog, _, err := NewTermIterator(r, field, []byte("dog"), nil)
	require.NoError(t, err)

	conj := NewConjunction(scoring.SumMerger, cat, dog)
	docs := docIDs(t, conj)
	require.Equal(t, []glint.DocID{1, 4}, docs)
}

func TestDisjunctionUnionsTerms(t *testing.T) {
	r := buildSegment(t, "cat", "dog", "bird", "cat dog")
	field, _ := r.Field("body")

	cat, _, err := NewTermIterator(r, field, []byte("cat"), nil)
	require.NoError(t, err)
	dog, _, err := NewTermIterator(r, field, []byte("dog"), nil)
	require.NoError(t, err)

	disj := NewDisjunction(scoring.SumMerger, cat, dog)
	docs := docIDs(t, disj)
	require.Equal(t, []glint.DocID{1, 2, 4}, docs)
}

func TestMinMatchDisjunctionRequiresKOfN(t *testing.T) {
	r := buildSegment(t,
		"a",       // doc1: a only
		"a b",     // doc2: a, b
		"a b c",   // doc3: a, b, c
		"b c",     // doc4: b, c
		"c",       // doc5: c only
	)
	field, _ := r.Field("body")

	var subs []Iterator
	for _, term := range []string{"a", "b", "c"} {
		it, found, err := NewTermIterator(r, field, []byte(term), nil)
		require.NoError(t, err)
		require.True(t, found)
		subs = append(subs, it)
	}

	mm := NewMinMatchDisjunction(scoring.SumMerger, 2, subs...)
	docs := docIDs(t, mm)
	require.Equal(t, []glint.DocID{2, 3, 4}, docs)
}

func TestRangeIteratorMatchesTermSpan(t *testing.T) {
	r := buildSegment(t, "apple", "banana", "cherry", "date")
	field, _ := r.Field("body")

	it, err := NewRangeIterator(r, field, []byte("banana"), []byte("date"), nil, scoring.SumMerger)
	require.NoError(t, err)
	docs := docIDs(t, it)
	require.Equal(t, []glint.DocID{2, 3}, docs)
}

func TestPrefixIteratorMatchesSharedPrefix(t *testing.T) {
	r := buildSegment(t, "cat", "catalog", "category", "dog")
	field, _ := r.Field("body")

	it, err := NewPrefixIterator(r, field, []byte("cat"), nil, scoring.SumMerger)
	require.NoError(t, err)
	docs := docIDs(t, it)
	require.Equal(t, []glint.DocID{1, 2, 3}, docs)
}

func TestPhraseRequiresAdjacentPositions(t *testing.T) {
	r := buildSegment(t, "quick brown fox", "brown quick fox", "quick fox brown")
	field, _ := r.Field("body")

	quick, _, err := NewTermIterator(r, field, []byte("quick"), nil)
	require.NoError(t, err)
	brown, _, err := NewTermIterator(r, field, []byte("brown"), nil)
	require.NoError(t, err)

	phrase := NewPhrase(0, scoring.SumMerger, quick, brown)
	docs := docIDs(t, phrase)
	require.Equal(t, []glint.DocID{1}, docs)
}

func TestPhraseWithSlopAllowsGap(t *testing.T) {
	r := buildSegment(t, "quick brown fox", "quick almost brown fox", "fox brown quick")
	field, _ := r.Field("body")

	quick, _, err := NewTermIterator(r, field, []byte("quick"), nil)
	require.NoError(t, err)
	brown, _, err := NewTermIterator(r, field, []byte("brown"), nil)
	require.NoError(t, err)

	phrase := NewPhrase(1, scoring.SumMerger, quick, brown)
	docs := docIDs(t, phrase)
	require.Equal(t, []glint.DocID{1, 2}, docs)
}

func TestAllMatchesEveryLiveDocument(t *testing.T) {
	r := buildSegment(t, "a", "b", "c")
	docs := docIDs(t, All(r, 1.0))
	require.Equal(t, []glint.DocID{1, 2, 3}, docs)
}

func TestColumnExistenceMatchesStoredField(t *testing.T) {
	r := buildSegment(t, "a", "b")
	docs := docIDs(t, ColumnExistence(r, "title", 1.0))
	require.Equal(t, []glint.DocID{1, 2}, docs)

	require.Empty(t, docIDs(t, ColumnExistence(r, "missing", 1.0)))
}

func TestTFIDFScoringFavorsRarerTerm(t *testing.T) {
	r := buildSegment(t, "common rare", "common common common", "common")
	field, _ := r.Field("body")

	rare, found, err := NewTermIterator(r, field, []byte("rare"), scoring.TFIDF{Normalize: true})
	require.NoError(t, err)
	require.True(t, found)
	common, found, err := NewTermIterator(r, field, []byte("common"), scoring.TFIDF{Normalize: true})
	require.NoError(t, err)
	require.True(t, found)

	doc, err := rare.Next()
	require.NoError(t, err)
	require.Equal(t, glint.MinDocID, doc)
	rareScore := rare.Score()
	require.Greater(t, rareScore, 0.0)

	doc, err = common.Advance(glint.MinDocID)
	require.NoError(t, err)
	require.Equal(t, glint.MinDocID, doc)
	commonScoreDoc1 := common.Score()

	require.Greater(t, rareScore, commonScoreDoc1)
}

func TestBM25ScoresAreNonNegative(t *testing.T) {
	r := buildSegment(t, "the quick brown fox", "the lazy dog", "the fox and the dog")
	field, _ := r.Field("body")

	it, found, err := NewTermIterator(r, field, []byte("fox"), scoring.DefaultBM25())
	require.NoError(t, err)
	require.True(t, found)

	for {
		doc, err := it.Next()
		require.NoError(t, err)
		if doc == glint.EOFDocID {
			break
		}
		require.GreaterOrEqual(t, it.Score(), 0.0)
	}
}
