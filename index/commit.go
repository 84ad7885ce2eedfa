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
	"go.uber.org/zap"

	"github.com/nakama-labs/glint/bitmap"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/segment"
)

// Remove enqueues filter, stamped with the writer's current
// generation; it is re-evaluated against the reader cache on the next
// commit to produce a mask delta for every live segment (spec.md
// §4.9's deletion-by-filter path). Every queued filter is applied to
// every segment live at commit time: this implementation does not
// persist a per-document write-generation inside the segment format
// (the file family spec.md §6 names has no slot for it), so the
// generation recorded here is informational only and does not narrow
// which documents a filter is allowed to mask. This is recorded as a
// simplification in the grounding ledger.
func (w *Writer) Remove(filter Filter) {
	w.delMu.Lock()
	w.delQueue = append(w.delQueue, pendingDeletion{generation: w.genCounter.Load(), filter: filter})
	w.delMu.Unlock()
}

// applyDeletions re-evaluates every queued filter against r, returning
// an updated mask and live-doc count when it changed anything.
func applyDeletions(r *segment.Reader, filters []Filter) (*bitmap.Bitmap, uint64, bool) {
	if len(filters) == 0 {
		return r.Mask(), r.Meta().LiveDocsCount, false
	}
	builder := bitmap.NewBuilder()
	changed := false
	var live uint64
	total := r.Meta().DocsCount
	for d := glint.MinDocID; uint64(d) <= total; d++ {
		masked := !r.IsLive(d)
		if !masked {
			for _, f := range filters {
				if f(d, r) {
					masked = true
					changed = true
					break
				}
			}
		}
		if masked {
			_ = builder.Add(uint32(d))
		} else {
			live++
		}
	}
	if !changed {
		return r.Mask(), r.Meta().LiveDocsCount, false
	}
	mask, _ := builder.Finish()
	return mask, live, true
}

// Commit runs the two-phase index_meta commit protocol: start()
// flushes every draining segment context, applies queued deletions to
// every live segment, materializes any finished consolidation, and
// stages the new index_meta; finish() publishes it. On any failure
// the pending state is discarded and the writer's meta is left at the
// last committed value (abort()).
func (w *Writer) Commit() error {
	w.commitLock.Lock()
	defer w.commitLock.Unlock()

	newMeta, newFiles, err := w.start()
	if err != nil {
		w.abort()
		return err
	}
	return w.finish(newMeta, newFiles)
}

// start is commit phase 1.
func (w *Writer) start() (glint.IndexMeta, []string, error) {
	flushed, err := w.flushAll()
	if err != nil {
		return glint.IndexMeta{}, nil, err
	}

	w.metaMu.RLock()
	segments := append([]glint.SegmentMeta(nil), w.meta.Segments...)
	generation := w.meta.Generation
	counter := w.meta.Counter
	w.metaMu.RUnlock()

	segments = append(segments, flushed...)

	w.delMu.Lock()
	filters := make([]Filter, len(w.delQueue))
	for i, d := range w.delQueue {
		filters[i] = d.filter
	}
	w.delMu.Unlock()

	if len(filters) > 0 {
		for i, sm := range segments {
			r, err := w.readerCache.Get(sm)
			if err != nil {
				return glint.IndexMeta{}, nil, err
			}
			mask, live, changed := applyDeletions(r, filters)
			if !changed {
				continue
			}
			updated, err := segment.RewriteMask(w.dir, sm, mask, live)
			if err != nil {
				return glint.IndexMeta{}, nil, err
			}
			segments[i] = updated
			w.readerCache.Evict(sm.Name, sm.Version)
		}
	}

	segments = w.applyPendingConsolidations(segments, generation)

	newMeta := glint.IndexMeta{
		Generation: generation + 1,
		Counter:    counter + 1,
		Segments:   segments,
	}

	var allFiles []string
	for _, sm := range newMeta.Segments {
		allFiles = append(allFiles, sm.Files...)
	}
	allFiles = append(allFiles, metaTempName)

	if err := writeIndexMeta(w.dir, metaTempName, newMeta); err != nil {
		return glint.IndexMeta{}, nil, err
	}
	if err := w.dir.Sync(allFiles); err != nil {
		return glint.IndexMeta{}, nil, err
	}
	return newMeta, allFiles, nil
}

// finish is commit phase 2: publish the staged index_meta as current.
func (w *Writer) finish(newMeta glint.IndexMeta, _ []string) error {
	if err := w.dir.Rename(metaTempName, metaFileName); err != nil {
		return err
	}

	w.metaMu.Lock()
	old := w.meta
	w.meta = newMeta
	w.metaMu.Unlock()

	w.delMu.Lock()
	w.delQueue = nil
	w.delMu.Unlock()

	w.adjustRefs(old.Segments, newMeta.Segments)

	live := make(map[string]bool, len(newMeta.Segments))
	for _, sm := range newMeta.Segments {
		live[readerCacheKey(sm.Name, sm.Version)] = true
	}
	w.readerCache.Purge(live)

	w.logger.Info("committed", zap.Uint64("generation", newMeta.Generation), zap.Int("segments", len(newMeta.Segments)))
	return nil
}

// abort discards any staged index_meta; the writer's committed meta
// is untouched, so it remains exactly what finish() last published.
func (w *Writer) abort() {
	_ = w.dir.Remove(metaTempName)
	w.logger.Warn("commit aborted")
}

func (w *Writer) adjustRefs(oldSegs, newSegs []glint.SegmentMeta) {
	w.refMu.Lock()
	defer w.refMu.Unlock()
	for _, s := range newSegs {
		w.refs[s.Name]++
	}
	for _, s := range oldSegs {
		w.refs[s.Name]--
	}
}

// Cleanup walks dir and removes any file not referenced by the
// current index_meta's segment files, nor by a pending consolidation,
// matching spec.md §4.9's reference-tracking cleanup pass. It is safe
// to race with readers: a name is only removed once its ref count is
// zero.
func (w *Writer) Cleanup() error {
	names, err := w.dir.List()
	if err != nil {
		return err
	}

	w.metaMu.RLock()
	keep := make(map[string]bool, len(w.meta.Segments)*8)
	for _, sm := range w.meta.Segments {
		for _, f := range sm.Files {
			keep[f] = true
		}
	}
	w.metaMu.RUnlock()
	keep[metaFileName] = true

	w.pendingMu.Lock()
	for _, c := range w.pendingConsolidation {
		for _, f := range c.meta.Files {
			keep[f] = true
		}
	}
	w.pendingMu.Unlock()

	for _, name := range names {
		if keep[name] {
			continue
		}
		w.refMu.Lock()
		refd := w.refs[segmentNameFromFile(name)] > 0
		w.refMu.Unlock()
		if refd {
			continue
		}
		if err := w.dir.Remove(name); err != nil {
			return err
		}
	}
	return nil
}

func segmentNameFromFile(fileName string) string {
	for i := len(fileName) - 1; i >= 0; i-- {
		if fileName[i] == '.' {
			return fileName[:i]
		}
	}
	return fileName
}
