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

package termdict

import (
	"github.com/blevesearch/vellum"

	"github.com/nakama-labs/glint/enc"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/glinterr"
)

// Encode serializes d's blocks (the "tm" term metadata file) and its
// FST image (the "ti" term index file) as two separate byte slices.
func Encode(d *Dictionary) (blocksAndMeta []byte, fst []byte) {
	var buf []byte
	buf = enc.PutUvarint(buf, d.size)
	buf = enc.PutUvarint(buf, d.docs)
	buf = enc.PutUvarint(buf, uint64(len(d.min)))
	buf = append(buf, d.min...)
	buf = enc.PutUvarint(buf, uint64(len(d.max)))
	buf = append(buf, d.max...)
	buf = enc.PutUvarint(buf, uint64(len(d.blocks)))
	for _, blk := range d.blocks {
		buf = enc.PutUvarint(buf, uint64(len(blk.Prefix)))
		buf = append(buf, blk.Prefix...)
		buf = enc.PutUvarint(buf, uint64(len(blk.Entries)))
		for _, e := range blk.Entries {
			buf = enc.PutUvarint(buf, uint64(len(e.Term)))
			buf = append(buf, e.Term...)
			buf = append(buf, byte(e.Class))
			buf = enc.PutUvarint(buf, e.Meta.DocsCount)
			buf = enc.PutUvarint(buf, e.Meta.TotalFreq)
			buf = enc.PutUvarint(buf, e.Postings)
			buf = enc.PutUvarint(buf, uint64(e.SubBlock))
		}
	}
	return buf, d.fstBytes
}

// Decode reconstructs a Dictionary from bytes produced by Encode,
// reloading the FST from its own image.
func Decode(blocksAndMeta, fstBytes []byte) (*Dictionary, error) {
	d := &Dictionary{}
	off := 0
	v, n, err := enc.ReadUvarint(blocksAndMeta, off)
	if err != nil {
		return nil, err
	}
	d.size = v
	off += n
	v, n, err = enc.ReadUvarint(blocksAndMeta, off)
	if err != nil {
		return nil, err
	}
	d.docs = v
	off += n
	minLen, n, err := enc.ReadUvarint(blocksAndMeta, off)
	if err != nil {
		return nil, err
	}
	off += n
	d.min = append([]byte(nil), blocksAndMeta[off:off+int(minLen)]...)
	off += int(minLen)
	maxLen, n, err := enc.ReadUvarint(blocksAndMeta, off)
	if err != nil {
		return nil, err
	}
	off += n
	d.max = append([]byte(nil), blocksAndMeta[off:off+int(maxLen)]...)
	off += int(maxLen)

	numBlocks, n, err := enc.ReadUvarint(blocksAndMeta, off)
	if err != nil {
		return nil, err
	}
	off += n
	d.blocks = make([]Block, numBlocks)
	for i := range d.blocks {
		plen, n, err := enc.ReadUvarint(blocksAndMeta, off)
		if err != nil {
			return nil, err
		}
		off += n
		prefix := append([]byte(nil), blocksAndMeta[off:off+int(plen)]...)
		off += int(plen)
		numEntries, n, err := enc.ReadUvarint(blocksAndMeta, off)
		if err != nil {
			return nil, err
		}
		off += n
		entries := make([]Entry, numEntries)
		for j := range entries {
			tlen, n, err := enc.ReadUvarint(blocksAndMeta, off)
			if err != nil {
				return nil, err
			}
			off += n
			term := append([]byte(nil), blocksAndMeta[off:off+int(tlen)]...)
			off += int(tlen)
			if off >= len(blocksAndMeta) {
				return nil, glinterr.Wrap(glinterr.ErrIndex, "termdict: truncated class byte", nil)
			}
			class := Classifier(blocksAndMeta[off])
			off++
			docsCount, n, err := enc.ReadUvarint(blocksAndMeta, off)
			if err != nil {
				return nil, err
			}
			off += n
			totalFreq, n, err := enc.ReadUvarint(blocksAndMeta, off)
			if err != nil {
				return nil, err
			}
			off += n
			postingsPtr, n, err := enc.ReadUvarint(blocksAndMeta, off)
			if err != nil {
				return nil, err
			}
			off += n
			subBlock, n, err := enc.ReadUvarint(blocksAndMeta, off)
			if err != nil {
				return nil, err
			}
			off += n
			entries[j] = Entry{
				Term:     term,
				Class:    class,
				Meta:     glint.TermMeta{DocsCount: docsCount, TotalFreq: totalFreq},
				Postings: postingsPtr,
				SubBlock: uint32(subBlock),
			}
		}
		d.blocks[i] = Block{Prefix: prefix, Entries: entries}
	}

	if len(fstBytes) > 0 {
		fst, err := vellum.Load(fstBytes)
		if err != nil {
			return nil, glinterr.Wrap(glinterr.ErrIndex, "termdict: fst load", err)
		}
		d.fst = fst
		d.fstBytes = fstBytes
	}
	return d, nil
}
