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

package index

import (
	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/nakama-labs/glint/bitmap"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/merge"
	"github.com/nakama-labs/glint/segment"
)

// ConsolidationPolicy selects which currently live segments should be
// folded into one. Returning fewer than two segments is a no-op.
type ConsolidationPolicy func(segments []glint.SegmentMeta) []glint.SegmentMeta

// consolidationResult is a merge that finished running against a
// snapshot of the committed segment set, staged until the next Commit
// decides how to land it relative to whatever committed in the
// meantime.
type consolidationResult struct {
	candidates        []glint.SegmentMeta
	meta              glint.SegmentMeta
	docMaps           []merge.DocMap
	generationAtStart uint64
}

// Consolidate merges the segments policy selects into one new segment
// and stages the result for the next Commit. It never takes
// commitLock itself, so it runs concurrently with document writes and
// with a Commit already in flight; per spec.md §4.9 the merge is
// resolved against whatever generation happens to be current when a
// Commit next calls applyPendingConsolidations:
//
//   - nothing committed in between: the candidates are retired and the
//     merged segment installed as-is.
//   - something committed, but every candidate is still present at the
//     exact version this merge read: any deletions that commit applied
//     are remapped onto the merged segment's DocIds and it is installed.
//   - something committed that replaced or dropped a candidate (most
//     often because it was itself claimed by an intervening
//     consolidation): this merge is discarded and its output segment is
//     left unreferenced for Cleanup to collect.
func (w *Writer) Consolidate(policy ConsolidationPolicy) error {
	w.metaMu.RLock()
	segments := append([]glint.SegmentMeta(nil), w.meta.Segments...)
	generationAtStart := w.meta.Generation
	w.metaMu.RUnlock()

	candidates := policy(segments)
	if len(candidates) < 2 {
		return nil
	}

	w.consolidationLock.Lock()
	for _, c := range candidates {
		if w.consolidating[c.Name] {
			w.consolidationLock.Unlock()
			return nil
		}
	}
	for _, c := range candidates {
		w.consolidating[c.Name] = true
	}
	w.consolidationLock.Unlock()
	defer func() {
		w.consolidationLock.Lock()
		for _, c := range candidates {
			delete(w.consolidating, c.Name)
		}
		w.consolidationLock.Unlock()
	}()

	readers := make([]*segment.Reader, len(candidates))
	for i, c := range candidates {
		r, err := w.readerCache.Get(c)
		if err != nil {
			return err
		}
		readers[i] = r
	}

	outName := w.newSegmentName()
	meta, docMaps, err := merge.Merge(readers, w.config.Sorted, outName, w.dir, w.config.Cipher)
	if err != nil {
		return err
	}

	w.pendingMu.Lock()
	w.pendingConsolidation = append(w.pendingConsolidation, consolidationResult{
		candidates:        candidates,
		meta:              meta,
		docMaps:           docMaps,
		generationAtStart: generationAtStart,
	})
	w.pendingMu.Unlock()
	return nil
}

// applyPendingConsolidations runs under commitLock, from start(), with
// segments being the segment set about to be committed (already
// including anything flushed this commit and any deletions already
// applied to it). generation is the index generation the commit in
// progress is building on top of.
func (w *Writer) applyPendingConsolidations(segments []glint.SegmentMeta, generation uint64) []glint.SegmentMeta {
	w.pendingMu.Lock()
	pending := w.pendingConsolidation
	w.pendingConsolidation = nil
	w.pendingMu.Unlock()

	for _, c := range pending {
		byName := make(map[string]glint.SegmentMeta, len(segments))
		for _, s := range segments {
			byName[s.Name] = s
		}

		allPresent := true
		for _, cand := range c.candidates {
			cur, ok := byName[cand.Name]
			if !ok || cur.Version != cand.Version {
				allPresent = false
				break
			}
		}
		if !allPresent {
			w.logger.Warn("consolidation discarded, a candidate changed underneath it", zap.String("segment", c.meta.Name))
			continue
		}

		// Always remap before installing, whether or not generation
		// moved: applyDeletions may have just masked a document in one
		// of c.candidates as part of this very commit, which merge's
		// own DocMaps (built from the pre-deletion candidate readers)
		// can't already reflect. remapConsolidationMask is a cheap
		// no-op when nothing new was masked.
		out, err := w.remapConsolidationMask(c, byName)
		if err != nil {
			w.logger.Warn("consolidation mask remap failed, discarding merge", zap.String("segment", c.meta.Name), zap.Error(err))
			continue
		}

		segments = removeSegments(segments, c.candidates)
		segments = append(segments, out)
	}
	return segments
}

// remapConsolidationMask applies every deletion an intervening commit
// made against c's candidate segments onto c's merged output segment.
// A document masked in more than one candidate segment, or masked
// already in the merged segment's own (empty-at-flush) mask, still
// only needs to be set once, so the newly-masked output DocIds from
// every candidate are collected into a roaring.Bitmap: unlike this
// package's sealed bitmap.Bitmap, it stays mutable across repeated Add
// calls from multiple sources, which is exactly what accumulating a
// multi-segment deletion set needs.
func (w *Writer) remapConsolidationMask(c consolidationResult, current map[string]glint.SegmentMeta) (glint.SegmentMeta, error) {
	newlyMasked := roaring.New()
	for i, cand := range c.candidates {
		cur := current[cand.Name]
		r, err := w.readerCache.Get(cur)
		if err != nil {
			return glint.SegmentMeta{}, err
		}
		total := r.Meta().DocsCount
		for d := glint.MinDocID; uint64(d) <= total; d++ {
			if r.IsLive(d) {
				continue
			}
			out, wasLive := c.docMaps[i].Lookup(d)
			if !wasLive {
				continue
			}
			newlyMasked.Add(uint32(out))
		}
	}
	if newlyMasked.IsEmpty() {
		return c.meta, nil
	}

	mergedReader, err := w.readerCache.Get(c.meta)
	if err != nil {
		return glint.SegmentMeta{}, err
	}
	builder := bitmap.NewBuilder()
	var live uint64
	for d := glint.MinDocID; uint64(d) <= c.meta.DocsCount; d++ {
		if !mergedReader.IsLive(d) || newlyMasked.Contains(uint32(d)) {
			_ = builder.Add(uint32(d))
			continue
		}
		live++
	}
	mask, _ := builder.Finish()
	w.readerCache.Evict(c.meta.Name, c.meta.Version)
	return segment.RewriteMask(w.dir, c.meta, mask, live)
}

func removeSegments(segments, remove []glint.SegmentMeta) []glint.SegmentMeta {
	drop := make(map[string]bool, len(remove))
	for _, r := range remove {
		drop[r.Name] = true
	}
	out := make([]glint.SegmentMeta, 0, len(segments))
	for _, s := range segments {
		if !drop[s.Name] {
			out = append(out, s)
		}
	}
	return out
}
