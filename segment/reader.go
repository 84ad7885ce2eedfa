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

package segment

import (
	"github.com/nakama-labs/glint/bitmap"
	"github.com/nakama-labs/glint/columnstore"
	"github.com/nakama-labs/glint/crypto"
	"github.com/nakama-labs/glint/enc"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/glinterr"
	"github.com/nakama-labs/glint/postings"
	"github.com/nakama-labs/glint/store"
	"github.com/nakama-labs/glint/termdict"
)

// FieldReader exposes one field's term dictionary plus access to the
// postings bytes a dictionary Entry's Postings pointer addresses.
type FieldReader struct {
	ID       glint.FieldID
	Name     string
	Features glint.FeatureSet
	NormID   glint.FieldID
	Dict     *termdict.Dictionary

	docBytes []byte
}

// Postings decodes the postings list a term dictionary entry points
// to.
func (f *FieldReader) Postings(pointer uint64) (postings.Sealed, error) {
	l, n, err := enc.ReadUvarint(f.docBytes, int(pointer))
	if err != nil {
		return postings.Sealed{}, glinterr.Wrap(glinterr.ErrIndex, "segment: truncated postings pointer", err)
	}
	start := int(pointer) + n
	end := start + int(l)
	if end > len(f.docBytes) {
		return postings.Sealed{}, glinterr.Wrap(glinterr.ErrIndex, "segment: truncated postings body", nil)
	}
	return postings.Decode(f.docBytes[start:end])
}

// Reader reopens a flushed segment's file family from a Directory.
type Reader struct {
	meta glint.SegmentMeta

	fields     map[string]*FieldReader
	fieldsByID map[glint.FieldID]*FieldReader

	columns    map[string]*columnstore.Column
	sortColumn *columnstore.Column
	hasSort    bool

	mask *bitmap.Bitmap
}

// Open reopens the segment named meta.Name from dir.
func Open(dir store.Directory, meta glint.SegmentMeta, cipher crypto.Cipher) (*Reader, error) {
	if cipher == nil {
		cipher = crypto.Identity{}
	}
	r := &Reader{
		meta:       meta,
		fields:     make(map[string]*FieldReader),
		fieldsByID: make(map[glint.FieldID]*FieldReader),
		columns:    make(map[string]*columnstore.Column),
	}

	docPayload, err := readFramed(dir, meta.Name, "doc")
	if err != nil {
		return nil, err
	}
	tmPayload, err := readFramed(dir, meta.Name, "tm")
	if err != nil {
		return nil, err
	}
	tiPayload, err := readFramed(dir, meta.Name, "ti")
	if err != nil {
		return nil, err
	}
	if err := r.decodeFields(docPayload, tmPayload, tiPayload); err != nil {
		return nil, err
	}

	csPayload, err := readFramed(dir, meta.Name, "cs")
	if err != nil {
		return nil, err
	}
	csiPayload, err := readFramed(dir, meta.Name, "csi")
	if err != nil {
		return nil, err
	}
	if err := r.decodeColumns(csPayload, csiPayload, cipher); err != nil {
		return nil, err
	}

	if meta.HasSortColumn {
		pkPayload, err := readFramed(dir, meta.Name, "2pk")
		if err != nil {
			return nil, err
		}
		if err := r.decodeSortColumn(pkPayload, cipher); err != nil {
			return nil, err
		}
		r.hasSort = true
	}

	maskPayload, err := readFramed(dir, meta.Name, "doc_mask")
	if err != nil {
		return nil, err
	}
	mask, err := bitmap.Unmarshal(maskPayload)
	if err != nil {
		return nil, err
	}
	r.mask = mask

	return r, nil
}

func readFramed(dir store.Directory, segmentName, ext string) ([]byte, error) {
	name := fileName(segmentName, ext)
	in, err := dir.Open(name, store.AdviceNormal)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	buf := make([]byte, in.Length())
	if _, err := in.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	if err := store.CheckFooter(buf); err != nil {
		return nil, err
	}
	_, _, n, err := store.ReadHeader(buf)
	if err != nil {
		return nil, err
	}
	return buf[n : len(buf)-store.FooterSize], nil
}

func (r *Reader) decodeFields(docPayload, tmPayload, tiPayload []byte) error {
	off := 0
	numFields, n, err := enc.ReadUvarint(tmPayload, off)
	if err != nil {
		return err
	}
	off += n
	tiOff := 0
	for i := uint64(0); i < numFields; i++ {
		fieldID, n, err := enc.ReadUvarint(tmPayload, off)
		if err != nil {
			return err
		}
		off += n
		nameLen, n, err := enc.ReadUvarint(tmPayload, off)
		if err != nil {
			return err
		}
		off += n
		name := string(tmPayload[off : off+int(nameLen)])
		off += int(nameLen)
		if off >= len(tmPayload) {
			return glinterr.Wrap(glinterr.ErrIndex, "segment: truncated field features byte", nil)
		}
		features := glint.FeatureSet(tmPayload[off])
		off++
		normID, n, err := enc.ReadUvarint(tmPayload, off)
		if err != nil {
			return err
		}
		off += n
		bmLen, n, err := enc.ReadUvarint(tmPayload, off)
		if err != nil {
			return err
		}
		off += n
		blocksAndMeta := tmPayload[off : off+int(bmLen)]
		off += int(bmLen)
		fstLen, n, err := enc.ReadUvarint(tmPayload, off)
		if err != nil {
			return err
		}
		off += n
		fstBytes := tiPayload[tiOff : tiOff+int(fstLen)]
		tiOff += int(fstLen)

		dict, err := termdict.Decode(blocksAndMeta, fstBytes)
		if err != nil {
			return err
		}
		fr := &FieldReader{
			ID:       glint.FieldID(fieldID),
			Name:     name,
			Features: features,
			NormID:   glint.FieldID(normID),
			Dict:     dict,
			docBytes: docPayload,
		}
		r.fields[name] = fr
		r.fieldsByID[fr.ID] = fr
	}
	return nil
}

func (r *Reader) decodeColumns(csPayload, csiPayload []byte, cipher crypto.Cipher) error {
	off := 0
	numColumns, n, err := enc.ReadUvarint(csiPayload, off)
	if err != nil {
		return err
	}
	off += n
	for i := uint64(0); i < numColumns; i++ {
		var h glint.ColumnHeader
		v, n, err := enc.ReadUvarint(csiPayload, off)
		if err != nil {
			return err
		}
		h.ID = glint.FieldID(v)
		off += n
		v, n, err = enc.ReadUvarint(csiPayload, off)
		if err != nil {
			return err
		}
		h.MinDoc = glint.DocID(v)
		off += n
		v, n, err = enc.ReadUvarint(csiPayload, off)
		if err != nil {
			return err
		}
		h.DocsCount = v
		off += n
		if off+1 >= len(csiPayload) {
			return glinterr.Wrap(glinterr.ErrIndex, "segment: truncated column header", nil)
		}
		h.Type = glint.ColumnType(csiPayload[off])
		off++
		h.Properties = glint.ColumnProperty(csiPayload[off])
		off++
		v, n, err = enc.ReadUvarint(csiPayload, off)
		if err != nil {
			return err
		}
		h.BitmapIndexOffset = v
		off += n
		dataOff, n, err := enc.ReadUvarint(csiPayload, off)
		if err != nil {
			return err
		}
		off += n
		dataLen, n, err := enc.ReadUvarint(csiPayload, off)
		if err != nil {
			return err
		}
		off += n
		indexLen, n, err := enc.ReadUvarint(csiPayload, off)
		if err != nil {
			return err
		}
		off += n
		indexBytes := csiPayload[off : off+int(indexLen)]
		off += int(indexLen)
		dataBytes := csPayload[dataOff : dataOff+dataLen]

		col, err := columnstore.OpenColumn(h, indexBytes, dataBytes, cipher)
		if err != nil {
			return err
		}
		isNorm := false
		for _, fr := range r.fields {
			if fr.NormID != 0 && fr.NormID == h.ID {
				r.columns[normColumnKey(fr.Name)] = col
				isNorm = true
				break
			}
		}
		if isNorm {
			continue
		}
		if col.Name() != "" {
			r.columns[col.Name()] = col
		}
	}
	return nil
}

func normColumnKey(fieldName string) string { return fieldName + "\x00norm" }

func isNormColumnKey(key string) bool {
	return len(key) > 5 && key[len(key)-5:] == "\x00norm"
}

func (r *Reader) decodeSortColumn(pkPayload []byte, cipher crypto.Cipher) error {
	var h glint.ColumnHeader
	off := 0
	v, n, err := enc.ReadUvarint(pkPayload, off)
	if err != nil {
		return err
	}
	h.ID = glint.FieldID(v)
	off += n
	v, n, err = enc.ReadUvarint(pkPayload, off)
	if err != nil {
		return err
	}
	h.MinDoc = glint.DocID(v)
	off += n
	v, n, err = enc.ReadUvarint(pkPayload, off)
	if err != nil {
		return err
	}
	h.DocsCount = v
	off += n
	if off+1 >= len(pkPayload) {
		return glinterr.Wrap(glinterr.ErrIndex, "segment: truncated sort column header", nil)
	}
	h.Type = glint.ColumnType(pkPayload[off])
	off++
	h.Properties = glint.ColumnProperty(pkPayload[off])
	off++
	v, n, err = enc.ReadUvarint(pkPayload, off)
	if err != nil {
		return err
	}
	h.BitmapIndexOffset = v
	off += n
	indexLen, n, err := enc.ReadUvarint(pkPayload, off)
	if err != nil {
		return err
	}
	off += n
	indexBytes := pkPayload[off : off+int(indexLen)]
	dataBytes := pkPayload[off+int(indexLen):]

	col, err := columnstore.OpenColumn(h, indexBytes, dataBytes, cipher)
	if err != nil {
		return err
	}
	r.sortColumn = col
	return nil
}

// Meta returns the segment's metadata as last flushed.
func (r *Reader) Meta() glint.SegmentMeta { return r.meta }

// Field returns the named field's reader.
func (r *Reader) Field(name string) (*FieldReader, bool) {
	fr, ok := r.fields[name]
	return fr, ok
}

// FieldNames returns every indexed field's name, in no particular
// order.
func (r *Reader) FieldNames() []string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	return names
}

// ColumnNames returns every stored (non-norm) column's name, in no
// particular order. Norm columns are reached via NormColumn instead.
func (r *Reader) ColumnNames() []string {
	names := make([]string, 0, len(r.columns))
	for name := range r.columns {
		if isNormColumnKey(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// Column returns a stored column by field name.
func (r *Reader) Column(name string) (*columnstore.Column, bool) {
	col, ok := r.columns[name]
	return col, ok
}

// NormColumn returns the length-norm column for an indexed field, if
// its feature set produced one.
func (r *Reader) NormColumn(fieldName string) (*columnstore.Column, bool) {
	col, ok := r.columns[normColumnKey(fieldName)]
	return col, ok
}

// SortColumn returns the segment's sort column, if the index is
// sorted.
func (r *Reader) SortColumn() (*columnstore.Column, bool) { return r.sortColumn, r.hasSort }

// IsLive reports whether doc is not masked (logically deleted).
func (r *Reader) IsLive(doc glint.DocID) bool {
	return r.mask == nil || !r.mask.Contains(uint32(doc))
}

// Mask returns the segment's raw deletion bitmap.
func (r *Reader) Mask() *bitmap.Bitmap { return r.mask }
