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

// Package index implements Glint's transactional core: the segment
// pools and flush-context ring that absorb concurrent document
// writes, deletion-by-filter, consolidation, and the two-phase
// index_meta commit protocol described in spec.md §4.9.
//
// Grounded on nakama's match/leaderboard registries for the
// concurrency shape (atomic counters guarding a small set of
// invariants, a registry-held mutex serializing structural changes
// while reads stay lock-free) and on ice/dict.go-style segment
// aggregation for what a committed generation actually holds.
package index

import (
	"github.com/nakama-labs/glint/enc"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/glinterr"
	"github.com/nakama-labs/glint/store"
)

const (
	metaFormatName = "glint_index_meta"
	metaFormatVer  = 1
	metaFileName   = "index_meta"
	metaTempName   = "index_meta.pending"
)

func encodeIndexMeta(m glint.IndexMeta) []byte {
	buf := enc.PutUvarint(nil, m.Generation)
	buf = enc.PutUvarint(buf, m.Counter)
	buf = enc.PutUvarint(buf, uint64(len(m.Segments)))
	for _, s := range m.Segments {
		buf = encodeSegmentMetaRecord(buf, s)
	}
	buf = enc.PutUvarint(buf, uint64(len(m.Payload)))
	buf = append(buf, m.Payload...)
	return buf
}

func encodeSegmentMetaRecord(buf []byte, s glint.SegmentMeta) []byte {
	buf = enc.PutUvarint(buf, uint64(len(s.Name)))
	buf = append(buf, s.Name...)
	buf = enc.PutUvarint(buf, uint64(s.Version))
	buf = enc.PutUvarint(buf, s.DocsCount)
	buf = enc.PutUvarint(buf, s.LiveDocsCount)
	buf = enc.PutUvarint(buf, s.ByteSize)
	buf = enc.PutUvarint(buf, uint64(len(s.CodecRef)))
	buf = append(buf, s.CodecRef...)
	buf = enc.PutUvarint(buf, uint64(len(s.Files)))
	for _, f := range s.Files {
		buf = enc.PutUvarint(buf, uint64(len(f)))
		buf = append(buf, f...)
	}
	if s.ColumnStore {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	if s.HasSortColumn {
		buf = append(buf, 1)
		buf = enc.PutUvarint(buf, uint64(s.SortColumnID))
	} else {
		buf = append(buf, 0)
	}
	return buf
}

func decodeIndexMeta(payload []byte) (glint.IndexMeta, error) {
	var m glint.IndexMeta
	off := 0
	v, n, err := enc.ReadUvarint(payload, off)
	if err != nil {
		return m, err
	}
	m.Generation = v
	off += n
	v, n, err = enc.ReadUvarint(payload, off)
	if err != nil {
		return m, err
	}
	m.Counter = v
	off += n
	numSegs, n, err := enc.ReadUvarint(payload, off)
	if err != nil {
		return m, err
	}
	off += n
	for i := uint64(0); i < numSegs; i++ {
		var s glint.SegmentMeta
		s, off, err = decodeSegmentMetaRecord(payload, off)
		if err != nil {
			return m, err
		}
		m.Segments = append(m.Segments, s)
	}
	payloadLen, n, err := enc.ReadUvarint(payload, off)
	if err != nil {
		return m, err
	}
	off += n
	m.Payload = append([]byte(nil), payload[off:off+int(payloadLen)]...)
	return m, nil
}

func decodeSegmentMetaRecord(payload []byte, off int) (glint.SegmentMeta, int, error) {
	var s glint.SegmentMeta
	nameLen, n, err := enc.ReadUvarint(payload, off)
	if err != nil {
		return s, off, err
	}
	off += n
	s.Name = string(payload[off : off+int(nameLen)])
	off += int(nameLen)

	v, n, err := enc.ReadUvarint(payload, off)
	if err != nil {
		return s, off, err
	}
	s.Version = uint32(v)
	off += n

	v, n, err = enc.ReadUvarint(payload, off)
	if err != nil {
		return s, off, err
	}
	s.DocsCount = v
	off += n

	v, n, err = enc.ReadUvarint(payload, off)
	if err != nil {
		return s, off, err
	}
	s.LiveDocsCount = v
	off += n

	v, n, err = enc.ReadUvarint(payload, off)
	if err != nil {
		return s, off, err
	}
	s.ByteSize = v
	off += n

	codecLen, n, err := enc.ReadUvarint(payload, off)
	if err != nil {
		return s, off, err
	}
	off += n
	s.CodecRef = string(payload[off : off+int(codecLen)])
	off += int(codecLen)

	numFiles, n, err := enc.ReadUvarint(payload, off)
	if err != nil {
		return s, off, err
	}
	off += n
	for i := uint64(0); i < numFiles; i++ {
		fLen, n, err := enc.ReadUvarint(payload, off)
		if err != nil {
			return s, off, err
		}
		off += n
		s.Files = append(s.Files, string(payload[off:off+int(fLen)]))
		off += int(fLen)
	}

	if off >= len(payload) {
		return s, off, glinterr.Wrap(glinterr.ErrIndex, "index: truncated segment meta record", nil)
	}
	s.ColumnStore = payload[off] == 1
	off++

	if off >= len(payload) {
		return s, off, glinterr.Wrap(glinterr.ErrIndex, "index: truncated segment meta record", nil)
	}
	if payload[off] == 1 {
		off++
		v, n, err = enc.ReadUvarint(payload, off)
		if err != nil {
			return s, off, err
		}
		s.SortColumnID = glint.FieldID(v)
		off += n
		s.HasSortColumn = true
	} else {
		off++
	}
	return s, off, nil
}

func frameMeta(payload []byte) []byte {
	out := store.WriteHeader(nil, metaFormatName, metaFormatVer)
	out = append(out, payload...)
	return store.WriteFooter(out)
}

func writeIndexMeta(dir store.Directory, name string, m glint.IndexMeta) error {
	framed := frameMeta(encodeIndexMeta(m))
	out, err := dir.Create(name)
	if err != nil {
		return glinterr.Wrap(glinterr.ErrIO, "index: create index_meta", err)
	}
	if _, err := out.Write(framed); err != nil {
		out.Close()
		return glinterr.Wrap(glinterr.ErrIO, "index: write index_meta", err)
	}
	return out.Close()
}

func readIndexMeta(dir store.Directory, name string) (glint.IndexMeta, error) {
	in, err := dir.Open(name, store.AdviceNormal)
	if err != nil {
		return glint.IndexMeta{}, err
	}
	defer in.Close()
	buf := make([]byte, in.Length())
	if _, err := in.ReadAt(buf, 0); err != nil {
		return glint.IndexMeta{}, glinterr.Wrap(glinterr.ErrIO, "index: read index_meta", err)
	}
	if err := store.CheckFooter(buf); err != nil {
		return glint.IndexMeta{}, err
	}
	_, _, n, err := store.ReadHeader(buf)
	if err != nil {
		return glint.IndexMeta{}, err
	}
	return decodeIndexMeta(buf[n : len(buf)-store.FooterSize])
}
