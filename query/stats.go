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
	"github.com/nakama-labs/glint/columnstore"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/segment"
)

// FieldStats collects the per-segment collection statistics a field's
// score functions need: BM25's average field length in particular
// requires the total token count across every live document, which
// the segment format only persists per-document (in the field's norm
// column), not as a precomputed aggregate.
func FieldStats(r *segment.Reader, fieldName string) (glint.CollectionStats, error) {
	var stats glint.CollectionStats

	norm, hasNorm := r.NormColumn(fieldName)
	if !hasNorm {
		stats.DocCount = r.Meta().LiveDocsCount
		return stats, nil
	}

	it := norm.Iterator(columnstore.HintNone, nil)
	for it.Next() {
		doc, val := it.Doc(), it.Value()
		if !r.IsLive(doc) {
			continue
		}
		stats.DocCount++
		stats.SumTotalTermFreq += segment.DecodeNorm(val)
	}
	if fr, ok := r.Field(fieldName); ok {
		stats.SumDocFreq = fr.Dict.DocsCount()
	}
	return stats, nil
}

// TermStats reports how many live documents a term dictionary entry
// reaches and its total occurrence count, used to build scoring.Stats
// for a single term's Scorer. The raw entry's Meta counts were
// computed when the segment was written or merged and do not reflect
// deletions made afterward, so callers scoring against a segment with
// live deletions should treat DocFreq as an upper bound.
func TermStats(meta glint.TermMeta) (docFreq, totalFreq uint64) {
	return meta.DocsCount, meta.TotalFreq
}
