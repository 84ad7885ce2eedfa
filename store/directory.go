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

// Package store names the external Directory and Lock contracts the
// index/segment/merge packages consume. Concrete byte storage,
// advisory locking, and mmap strategy are collaborators outside this
// module's scope (spec.md §1); this package only fixes the interface
// shape, plus two usable reference implementations (fs, mem) in the
// same spirit bluge ships FileSystemDirectory/MemOnlyDirectory behind
// its own Directory interface.
package store

import "io"

// OpenAdvice hints how a reader intends to use an opened input, e.g.
// to let the directory choose between mmap and buffered reads.
type OpenAdvice int

const (
	AdviceNormal OpenAdvice = iota
	AdviceSequential
	AdviceRandom
)

// Output is a write-once, append-only byte stream being built by a
// writer. Checksum must report the cumulative CRC of bytes written so
// far, so writers can embed a running checksum in file footers
// without buffering the whole file.
type Output interface {
	io.Writer
	io.Closer
	Checksum() uint64
	Position() int64
}

// Input is a read-only, randomly-addressable byte stream.
type Input interface {
	io.ReaderAt
	io.Closer
	Length() int64

	// Reopen returns an independent cursor over the same underlying
	// bytes; closing it does not affect other cursors.
	Reopen() (Input, error)

	// Dup is an alias for Reopen kept for symmetry with directories
	// that implement it more cheaply than a full reopen (e.g. an
	// mmap-backed input just needs a new *io.SectionReader).
	Dup() (Input, error)
}

// Lock is an advisory, directory-scoped write lock.
type Lock interface {
	Unlock() error
}

// Directory is the named byte-stream abstraction every on-disk format
// in this module is written against. Names are opaque byte strings
// (segment file names); a Directory need not support directories of
// directories.
type Directory interface {
	Create(name string) (Output, error)
	Open(name string, advice OpenAdvice) (Input, error)
	Exists(name string) (bool, error)
	Remove(name string) error
	Rename(oldName, newName string) error
	Sync(names []string) error
	Mtime(name string) (int64, error)
	Length(name string) (int64, error)
	MakeLock(name string) (Lock, error)
	List() ([]string, error)
}
