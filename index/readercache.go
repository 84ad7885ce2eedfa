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
	"fmt"
	"sync"

	"github.com/nakama-labs/glint/crypto"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/segment"
	"github.com/nakama-labs/glint/store"
)

// readerCache opens segment readers on demand, keyed by
// (segment_name, segment_version), for deletion evaluation and
// consolidation remap. Entries are purged explicitly when their key
// is masked out of the committed segment set, the nesting order's
// innermost lock per spec.md §5.
type readerCache struct {
	mu     sync.Mutex
	dir    store.Directory
	cipher crypto.Cipher
	byKey  map[string]*segment.Reader
}

func newReaderCache(dir store.Directory, cipher crypto.Cipher) *readerCache {
	return &readerCache{dir: dir, cipher: cipher, byKey: make(map[string]*segment.Reader)}
}

func readerCacheKey(name string, version uint32) string {
	return fmt.Sprintf("%s@%d", name, version)
}

// Get returns a cached reader for meta, opening and caching it on
// first use.
func (c *readerCache) Get(meta glint.SegmentMeta) (*segment.Reader, error) {
	key := readerCacheKey(meta.Name, meta.Version)
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.byKey[key]; ok {
		return r, nil
	}
	r, err := segment.Open(c.dir, meta, c.cipher)
	if err != nil {
		return nil, err
	}
	c.byKey[key] = r
	return r, nil
}

// Evict drops a cached reader; called once its segment is no longer
// part of the committed set.
func (c *readerCache) Evict(name string, version uint32) {
	c.mu.Lock()
	delete(c.byKey, readerCacheKey(name, version))
	c.mu.Unlock()
}

// Purge evicts every cached reader not present in live.
func (c *readerCache) Purge(live map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.byKey {
		if !live[key] {
			delete(c.byKey, key)
		}
	}
}
