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

package store

import (
	"hash/crc64"
	"sort"
	"sync"

	"github.com/nakama-labs/glint/glinterr"
)

var crcTable = crc64.MakeTable(crc64.ISO)

// MemDirectory is an in-memory Directory, useful for tests and for
// small, ephemeral indices. Grounded on bluge/index/directory_mem.go's
// map-of-byte-slices approach.
type MemDirectory struct {
	mu    sync.RWMutex
	files map[string][]byte
	locks map[string]bool
}

// NewMemDirectory returns an empty in-memory directory.
func NewMemDirectory() *MemDirectory {
	return &MemDirectory{files: map[string][]byte{}, locks: map[string]bool{}}
}

func (d *MemDirectory) Create(name string) (Output, error) {
	return &memOutput{dir: d, name: name, crc: crc64.New(crcTable)}, nil
}

func (d *MemDirectory) Open(name string, _ OpenAdvice) (Input, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	data, ok := d.files[name]
	if !ok {
		return nil, glinterr.Wrap(glinterr.ErrIO, "mem: no such file "+name, nil)
	}
	return &memInput{data: data}, nil
}

func (d *MemDirectory) Exists(name string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.files[name]
	return ok, nil
}

func (d *MemDirectory) Remove(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.files, name)
	return nil
}

func (d *MemDirectory) Rename(oldName, newName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.files[oldName]
	if !ok {
		return glinterr.Wrap(glinterr.ErrIO, "mem: no such file "+oldName, nil)
	}
	d.files[newName] = data
	delete(d.files, oldName)
	return nil
}

func (d *MemDirectory) Sync([]string) error { return nil }

func (d *MemDirectory) Mtime(string) (int64, error) { return 0, nil }

func (d *MemDirectory) Length(name string) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	data, ok := d.files[name]
	if !ok {
		return 0, glinterr.Wrap(glinterr.ErrIO, "mem: no such file "+name, nil)
	}
	return int64(len(data)), nil
}

func (d *MemDirectory) MakeLock(name string) (Lock, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locks[name] {
		return nil, glinterr.ErrLockObtainFailed
	}
	d.locks[name] = true
	return &memLock{dir: d, name: name}, nil
}

func (d *MemDirectory) List() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.files))
	for n := range d.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

type memLock struct {
	dir  *MemDirectory
	name string
}

func (l *memLock) Unlock() error {
	l.dir.mu.Lock()
	defer l.dir.mu.Unlock()
	delete(l.dir.locks, l.name)
	return nil
}

type memOutput struct {
	dir  *MemDirectory
	name string
	buf  []byte
	crc  crc64CRC
}

// crc64CRC narrows hash.Hash64 to what Checksum needs while keeping
// Write available via the embedded hash.
type crc64CRC interface {
	Write(p []byte) (int, error)
	Sum64() uint64
}

func (o *memOutput) Write(p []byte) (int, error) {
	o.buf = append(o.buf, p...)
	return o.crc.Write(p)
}

func (o *memOutput) Close() error {
	o.dir.mu.Lock()
	defer o.dir.mu.Unlock()
	o.dir.files[o.name] = o.buf
	return nil
}

func (o *memOutput) Checksum() uint64 { return o.crc.Sum64() }

func (o *memOutput) Position() int64 { return int64(len(o.buf)) }

type memInput struct {
	data []byte
}

func (i *memInput) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(i.data)) {
		return 0, glinterr.Wrap(glinterr.ErrIO, "mem: read past end", nil)
	}
	n := copy(p, i.data[off:])
	if n < len(p) {
		return n, glinterr.Wrap(glinterr.ErrIO, "mem: short read", nil)
	}
	return n, nil
}

func (i *memInput) Close() error { return nil }

func (i *memInput) Length() int64 { return int64(len(i.data)) }

func (i *memInput) Reopen() (Input, error) { return &memInput{data: i.data}, nil }

func (i *memInput) Dup() (Input, error) { return i.Reopen() }
