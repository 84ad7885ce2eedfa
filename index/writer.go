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
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/nakama-labs/glint/crypto"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/glinterr"
	"github.com/nakama-labs/glint/segment"
	"github.com/nakama-labs/glint/store"
)

// Config bounds how large a single segment context is allowed to grow
// before documents are directed to a fresh segment context instead,
// and selects whether the index maintains a sort order across
// consolidations. Reaching a bound does not flush the full context by
// itself; it is flushed with the others at the next Commit.
type Config struct {
	Cipher           crypto.Cipher
	SegmentDocsMax   uint64
	SegmentMemoryMax uint64
	Sorted           bool
	Logger           *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.SegmentDocsMax == 0 {
		c.SegmentDocsMax = 1 << 20
	}
	if c.SegmentMemoryMax == 0 {
		c.SegmentMemoryMax = 256 << 20
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// segmentContext wraps one in-progress segment.Writer with the
// bookkeeping the document pipeline and flush path need: how many
// docs it has absorbed, an approximate byte budget, and the write
// generation each committed doc was published under.
type segmentContext struct {
	mu    sync.Mutex // segment_context.flush_mutex_ in spec.md §5's lock nesting order
	name  string
	w     *segment.Writer
	docs  uint64
	bytes uint64
	gens  []uint64 // generation each committed local doc published under, in commit order (rolled-back docs get no entry)
}

func (sc *segmentContext) approxBytes(n int) { sc.bytes += uint64(n) }

// flushContext holds every segment context currently absorbing
// documents for one ring slot (active or draining).
type flushContext struct {
	mu       sync.RWMutex // flush_context.mutex_
	contexts []*segmentContext
}

// Writer is Glint's transactional index core: a two-slot flush
// context ring absorbs concurrent document writes into pooled segment
// contexts, while commit/consolidate/clear are serialized by
// commitLock, matching spec.md §4.9/§5's nesting order
// commitLock -> flushContext.mu -> segmentContext.mu -> consolidationLock -> readerCache.mu.
type Writer struct {
	dir    store.Directory
	config Config
	logger *zap.Logger

	commitLock sync.Mutex

	ring      [2]*flushContext
	activeIdx *atomic.Int32

	freeMu   sync.Mutex
	freeList []*segmentContext

	genCounter  *atomic.Uint64
	nextSegment *atomic.Uint64

	delMu    sync.Mutex
	delQueue []pendingDeletion

	consolidationLock sync.Mutex
	consolidating     map[string]bool

	readerCache *readerCache

	refMu sync.Mutex
	refs  map[string]int

	metaMu sync.RWMutex
	meta   glint.IndexMeta

	pendingMu            sync.Mutex
	pendingConsolidation []consolidationResult
}

type pendingDeletion struct {
	generation uint64
	filter     Filter
}

// Filter reports whether a live document should be masked. r exposes
// the segment the document belongs to, so a filter can consult stored
// columns.
type Filter func(doc glint.DocID, r *segment.Reader) bool

// Open reopens (or creates, if absent) the index_meta in dir and
// returns a ready Writer.
func Open(dir store.Directory, config Config) (*Writer, error) {
	config = config.withDefaults()
	w := &Writer{
		dir:           dir,
		config:        config,
		logger:        config.Logger,
		activeIdx:     atomic.NewInt32(0),
		genCounter:    atomic.NewUint64(0),
		nextSegment:   atomic.NewUint64(0),
		consolidating: make(map[string]bool),
		refs:          make(map[string]int),
	}
	w.ring[0] = &flushContext{}
	w.ring[1] = &flushContext{}
	w.readerCache = newReaderCache(dir, config.Cipher)

	exists, err := dir.Exists(metaFileName)
	if err != nil {
		return nil, glinterr.Wrap(glinterr.ErrIO, "index: checking index_meta", err)
	}
	if exists {
		m, err := readIndexMeta(dir, metaFileName)
		if err != nil {
			return nil, err
		}
		w.meta = m
		for _, s := range m.Segments {
			w.refs[s.Name]++
		}
	}
	return w, nil
}

func (w *Writer) activeFlushContext() *flushContext {
	return w.ring[w.activeIdx.Load()]
}

func (w *Writer) drainingFlushContext() *flushContext {
	return w.ring[1-w.activeIdx.Load()]
}

// newSegmentName allocates a fresh, never-reused segment name.
func (w *Writer) newSegmentName() string {
	id := w.nextSegment.Inc()
	return segmentNameFor(w.meta.Generation, id)
}

func segmentNameFor(generation, id uint64) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	buf := []byte{'_'}
	for _, v := range []uint64{generation, id} {
		if v == 0 {
			buf = append(buf, '0')
		}
		start := len(buf)
		for v > 0 {
			buf = append(buf, alphabet[v%36])
			v /= 36
		}
		for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
			buf[i], buf[j] = buf[j], buf[i]
		}
		buf = append(buf, '_')
	}
	return string(buf)
}

// acquireSegmentContext returns a segment context from the active
// flush context's pool with room for at least one more document,
// reusing a free one or creating a fresh segment.Writer.
func (w *Writer) acquireSegmentContext() *segmentContext {
	w.freeMu.Lock()
	var sc *segmentContext
	if len(w.freeList) > 0 {
		sc = w.freeList[len(w.freeList)-1]
		w.freeList = w.freeList[:len(w.freeList)-1]
	}
	w.freeMu.Unlock()

	fc := w.activeFlushContext()
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if len(fc.contexts) > 0 {
		last := fc.contexts[len(fc.contexts)-1]
		last.mu.Lock()
		full := last.docs >= w.config.SegmentDocsMax || last.bytes >= w.config.SegmentMemoryMax
		last.mu.Unlock()
		if !full {
			return last
		}
	}
	if sc == nil {
		sc = &segmentContext{w: segment.NewWriter(w.config.Cipher)}
	} else {
		sc.w.Reset()
		sc.docs = 0
		sc.bytes = 0
		sc.gens = nil
	}
	sc.name = w.newSegmentName()
	fc.contexts = append(fc.contexts, sc)
	return sc
}

func (w *Writer) releaseToFreeList(sc *segmentContext) {
	w.freeMu.Lock()
	w.freeList = append(w.freeList, sc)
	w.freeMu.Unlock()
}

// flushAll swaps the active/draining ring slots and flushes every
// segment context the now-draining slot still holds. Swapping the
// index is an atomic load followed by an atomic store, which cannot
// race another swap because flushAll only runs under commitLock; waiting
// for in-flight documents in the drained slot to finish is achieved
// here by acquiring each segmentContext's own mutex before flushing
// it, which blocks until any document already in progress against
// that context completes, rather than a dedicated condition variable.
func (w *Writer) flushAll() ([]glint.SegmentMeta, error) {
	oldIdx := w.activeIdx.Load()
	w.activeIdx.Store(1 - oldIdx)
	draining := w.ring[oldIdx]

	draining.mu.Lock()
	defer draining.mu.Unlock()

	var metas []glint.SegmentMeta
	for _, sc := range draining.contexts {
		sc.mu.Lock()
		if sc.docs > 0 {
			meta, err := sc.w.Flush(glint.SegmentMeta{Name: sc.name, Version: 1}, w.dir)
			if err != nil {
				sc.mu.Unlock()
				return nil, err
			}
			metas = append(metas, meta)
		}
		sc.mu.Unlock()
		w.releaseToFreeList(sc)
	}
	draining.contexts = nil
	return metas, nil
}

// DocumentTxn represents one in-progress document insertion.
type DocumentTxn struct {
	w      *Writer
	sc     *segmentContext
	doc    glint.DocID
	gen    uint64
	failed bool
}

// NewDocument begins a document against the currently active flush
// context. documents() may be called from any number of goroutines
// concurrently, per spec.md §5.
func (w *Writer) NewDocument() *DocumentTxn {
	sc := w.acquireSegmentContext()
	sc.mu.Lock()
	doc := sc.w.Begin()
	sc.mu.Unlock()
	return &DocumentTxn{w: w, sc: sc, doc: doc, gen: w.genCounter.Inc()}
}

// DocID returns the local DocId this transaction was assigned.
func (t *DocumentTxn) DocID() glint.DocID { return t.doc }

// InsertIndexed streams an indexed field's tokens into the current
// document.
func (t *DocumentTxn) InsertIndexed(field string, features glint.FeatureSet, tokens []segment.Token) error {
	t.sc.mu.Lock()
	defer t.sc.mu.Unlock()
	if err := t.sc.w.InsertIndexed(field, features, tokens); err != nil {
		t.failed = true
		return err
	}
	for _, tok := range tokens {
		t.sc.approxBytes(len(tok.Term))
	}
	return nil
}

// InsertStored appends a stored column value to the current document.
func (t *DocumentTxn) InsertStored(field string, value []byte) error {
	t.sc.mu.Lock()
	defer t.sc.mu.Unlock()
	if err := t.sc.w.InsertStored(field, value); err != nil {
		t.failed = true
		return err
	}
	t.sc.approxBytes(len(value))
	return nil
}

// InsertStoredSorted appends the current document's sort key.
func (t *DocumentTxn) InsertStoredSorted(value []byte) error {
	t.sc.mu.Lock()
	defer t.sc.mu.Unlock()
	if err := t.sc.w.InsertStoredSorted(value); err != nil {
		t.failed = true
		return err
	}
	t.sc.approxBytes(len(value))
	return nil
}

// Commit seals the document. On any prior insert failure it rolls
// back instead, masking the DocId but leaving the writer usable for
// the next document, per spec.md §4.9 step 2 and §8 scenario 5.
func (t *DocumentTxn) Commit() error {
	t.sc.mu.Lock()
	defer t.sc.mu.Unlock()
	if t.failed {
		t.sc.w.Rollback()
		return glinterr.Wrap(glinterr.ErrIO, "index: document failed and was rolled back", nil)
	}
	if err := t.sc.w.Commit(); err != nil {
		return err
	}
	t.sc.docs++
	t.sc.gens = append(t.sc.gens, t.gen)
	return nil
}
