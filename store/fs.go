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
	"os"
	"path/filepath"
	"sort"

	"github.com/blevesearch/mmap-go"

	"github.com/nakama-labs/glint/glinterr"
)

// FSDirectory is a Directory backed by a plain OS directory, mirroring
// bluge/index/directory_fs.go's layout (one file per name, advisory
// locking via a sentinel pid/lock file, mmap-backed reads).
type FSDirectory struct {
	path string
}

// NewFSDirectory returns a Directory rooted at path, creating it if
// necessary.
func NewFSDirectory(path string) (*FSDirectory, error) {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, glinterr.Wrap(glinterr.ErrIO, "fs: mkdir", err)
	}
	return &FSDirectory{path: path}, nil
}

func (d *FSDirectory) full(name string) string { return filepath.Join(d.path, name) }

func (d *FSDirectory) Create(name string) (Output, error) {
	f, err := os.OpenFile(d.full(name), os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o600)
	if err != nil {
		return nil, glinterr.Wrap(glinterr.ErrIO, "fs: create "+name, err)
	}
	return &fsOutput{f: f, crc: crc64.New(crc64.MakeTable(crc64.ISO))}, nil
}

func (d *FSDirectory) Open(name string, advice OpenAdvice) (Input, error) {
	f, err := os.Open(d.full(name))
	if err != nil {
		return nil, glinterr.Wrap(glinterr.ErrIO, "fs: open "+name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, glinterr.Wrap(glinterr.ErrIO, "fs: stat "+name, err)
	}
	if advice == AdviceRandom && info.Size() > 0 {
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err == nil {
			return &fsMmapInput{f: f, m: m}, nil
		}
	}
	return &fsInput{f: f, size: info.Size()}, nil
}

func (d *FSDirectory) Exists(name string) (bool, error) {
	_, err := os.Stat(d.full(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, glinterr.Wrap(glinterr.ErrIO, "fs: stat "+name, err)
}

func (d *FSDirectory) Remove(name string) error {
	if err := os.Remove(d.full(name)); err != nil && !os.IsNotExist(err) {
		return glinterr.Wrap(glinterr.ErrIO, "fs: remove "+name, err)
	}
	return nil
}

func (d *FSDirectory) Rename(oldName, newName string) error {
	if err := os.Rename(d.full(oldName), d.full(newName)); err != nil {
		return glinterr.Wrap(glinterr.ErrIO, "fs: rename", err)
	}
	return nil
}

func (d *FSDirectory) Sync(names []string) error {
	for _, n := range names {
		f, err := os.Open(d.full(n))
		if err != nil {
			return glinterr.Wrap(glinterr.ErrIO, "fs: sync open "+n, err)
		}
		err = f.Sync()
		f.Close()
		if err != nil {
			return glinterr.Wrap(glinterr.ErrIO, "fs: sync "+n, err)
		}
	}
	return nil
}

func (d *FSDirectory) Mtime(name string) (int64, error) {
	info, err := os.Stat(d.full(name))
	if err != nil {
		return 0, glinterr.Wrap(glinterr.ErrIO, "fs: stat "+name, err)
	}
	return info.ModTime().UnixNano(), nil
}

func (d *FSDirectory) Length(name string) (int64, error) {
	info, err := os.Stat(d.full(name))
	if err != nil {
		return 0, glinterr.Wrap(glinterr.ErrIO, "fs: stat "+name, err)
	}
	return info.Size(), nil
}

func (d *FSDirectory) MakeLock(name string) (Lock, error) {
	f, err := os.OpenFile(d.full(name), os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, glinterr.ErrLockObtainFailed
		}
		return nil, glinterr.Wrap(glinterr.ErrIO, "fs: lock "+name, err)
	}
	return &fsLock{path: d.full(name), f: f}, nil
}

func (d *FSDirectory) List() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, glinterr.Wrap(glinterr.ErrIO, "fs: readdir", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

type fsLock struct {
	path string
	f    *os.File
}

func (l *fsLock) Unlock() error {
	l.f.Close()
	return os.Remove(l.path)
}

type fsOutput struct {
	f   *os.File
	crc interface {
		Write([]byte) (int, error)
		Sum64() uint64
	}
	pos int64
}

func (o *fsOutput) Write(p []byte) (int, error) {
	n, err := o.f.Write(p)
	o.pos += int64(n)
	o.crc.Write(p[:n])
	if err != nil {
		return n, glinterr.Wrap(glinterr.ErrIO, "fs: write", err)
	}
	return n, nil
}

func (o *fsOutput) Close() error { return o.f.Close() }

func (o *fsOutput) Checksum() uint64 { return o.crc.Sum64() }

func (o *fsOutput) Position() int64 { return o.pos }

type fsInput struct {
	f    *os.File
	size int64
}

func (i *fsInput) ReadAt(p []byte, off int64) (int, error) { return i.f.ReadAt(p, off) }

func (i *fsInput) Close() error { return i.f.Close() }

func (i *fsInput) Length() int64 { return i.size }

func (i *fsInput) Reopen() (Input, error) {
	f, err := os.Open(i.f.Name())
	if err != nil {
		return nil, glinterr.Wrap(glinterr.ErrIO, "fs: reopen", err)
	}
	return &fsInput{f: f, size: i.size}, nil
}

func (i *fsInput) Dup() (Input, error) { return i.Reopen() }

type fsMmapInput struct {
	f *os.File
	m mmap.MMap
}

func (i *fsMmapInput) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(i.m)) {
		return 0, glinterr.Wrap(glinterr.ErrIO, "fs: mmap read past end", nil)
	}
	n := copy(p, i.m[off:])
	if n < len(p) {
		return n, glinterr.Wrap(glinterr.ErrIO, "fs: mmap short read", nil)
	}
	return n, nil
}

func (i *fsMmapInput) Close() error {
	err := i.m.Unmap()
	cerr := i.f.Close()
	if err != nil {
		return glinterr.Wrap(glinterr.ErrIO, "fs: munmap", err)
	}
	if cerr != nil {
		return glinterr.Wrap(glinterr.ErrIO, "fs: close", cerr)
	}
	return nil
}

func (i *fsMmapInput) Length() int64 { return int64(len(i.m)) }

func (i *fsMmapInput) Reopen() (Input, error) {
	f, err := os.Open(i.f.Name())
	if err != nil {
		return nil, glinterr.Wrap(glinterr.ErrIO, "fs: reopen", err)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, glinterr.Wrap(glinterr.ErrIO, "fs: mmap", err)
	}
	return &fsMmapInput{f: f, m: m}, nil
}

func (i *fsMmapInput) Dup() (Input, error) { return i.Reopen() }
