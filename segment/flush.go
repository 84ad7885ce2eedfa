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
	"sort"

	"github.com/nakama-labs/glint/bitmap"
	"github.com/nakama-labs/glint/columnstore"
	"github.com/nakama-labs/glint/enc"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/glinterr"
	"github.com/nakama-labs/glint/postings"
	"github.com/nakama-labs/glint/store"
	"github.com/nakama-labs/glint/termdict"
)

const formatVersion = 1

type pendingColumn struct {
	fieldID glint.FieldID
	name    string
	sealed  columnstore.Sealed
}

// Flush serializes every field and column accumulated so far into
// dir, under meta.Name, producing the file list. On success meta is
// returned updated with DocsCount, LiveDocsCount, and Files; the
// writer remains usable for further documents (docs already flushed
// are not truncated, matching an append-only segment file family
// being written exactly once per Flush call in this implementation).
func (w *Writer) Flush(meta glint.SegmentMeta, dir store.Directory) (glint.SegmentMeta, error) {
	if w.curBegun {
		return meta, glinterr.Wrap(glinterr.ErrIllegalState, "segment: Flush called with an open document", nil)
	}

	meta.DocsCount = w.docsCount
	meta.LiveDocsCount = w.liveDocsCount
	meta.ColumnStore = true
	meta.HasSortColumn = w.hasSort
	if w.hasSort {
		meta.SortColumnID = w.sortID
	}

	var columns []pendingColumn
	for _, name := range w.columnOrder {
		columns = append(columns, pendingColumn{fieldID: w.columnIDs[name], name: name, sealed: w.columns[name].Finish()})
	}
	for _, name := range w.fieldOrder {
		fb := w.fields[name]
		if fb.norm != nil {
			columns = append(columns, pendingColumn{fieldID: fb.normID, name: "", sealed: fb.norm.Finish()})
		}
	}

	csPayload, csiPayload := encodeColumns(columns)
	docPayload, tmPayload, tiPayload := encodeFields(w)
	fmPayload := encodeFieldMeta(w)
	smPayload := encodeSegmentMeta(meta)
	maskPayload := w.maskBuilder
	_, maskRaw := maskPayload.Finish()

	var pkPayload []byte
	if w.hasSort {
		sealed := w.sortColumn.Finish()
		h := sealed.Header
		pkPayload = enc.PutUvarint(nil, uint64(h.ID))
		pkPayload = enc.PutUvarint(pkPayload, uint64(h.MinDoc))
		pkPayload = enc.PutUvarint(pkPayload, h.DocsCount)
		pkPayload = append(pkPayload, byte(h.Type))
		pkPayload = append(pkPayload, byte(h.Properties))
		pkPayload = enc.PutUvarint(pkPayload, h.BitmapIndexOffset)
		pkPayload = enc.PutUvarint(pkPayload, uint64(len(sealed.IndexBytes)))
		pkPayload = append(pkPayload, sealed.IndexBytes...)
		pkPayload = append(pkPayload, sealed.DataBytes...)
	}

	files := map[string][]byte{
		"sm":       frame("glint.sm", smPayload),
		"cs":       frame("glint.cs", csPayload),
		"csi":      frame("glint.csi", csiPayload),
		"ti":       frame("glint.ti", tiPayload),
		"tm":       frame("glint.tm", tmPayload),
		"doc":      frame("glint.doc", docPayload),
		"pos":      frame("glint.pos", nil),
		"pay":      frame("glint.pay", nil),
		"fm":       frame("glint.fm", fmPayload),
		"f2":       frame("glint.f2", nil),
		"doc_mask": frame("glint.doc_mask", maskRaw),
	}
	if w.hasSort {
		files["2pk"] = frame("glint.2pk", pkPayload)
	}

	var names []string
	for _, ext := range fileExtensions {
		buf, ok := files[ext]
		if !ok {
			continue
		}
		name := fileName(meta.Name, ext)
		out, err := dir.Create(name)
		if err != nil {
			return meta, err
		}
		if _, err := out.Write(buf); err != nil {
			_ = out.Close()
			return meta, err
		}
		if err := out.Close(); err != nil {
			return meta, err
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if err := dir.Sync(names); err != nil {
		return meta, err
	}
	meta.Files = names
	var total uint64
	for _, buf := range files {
		total += uint64(len(buf))
	}
	meta.ByteSize = total
	return meta, nil
}

// RewriteMask overwrites an already-flushed segment's "doc_mask" file
// with mask, updating meta's LiveDocsCount to match. This is the
// mask-only "partial sync" spec.md §4.9 describes as an alternative
// to a full segment flush when a commit only applies deletions.
func RewriteMask(dir store.Directory, meta glint.SegmentMeta, mask *bitmap.Bitmap, liveDocsCount uint64) (glint.SegmentMeta, error) {
	var maskRaw []byte
	if mask != nil {
		maskRaw = mask.Marshal()
	}
	name := fileName(meta.Name, "doc_mask")
	out, err := dir.Create(name)
	if err != nil {
		return meta, err
	}
	if _, err := out.Write(frame("glint.doc_mask", maskRaw)); err != nil {
		_ = out.Close()
		return meta, err
	}
	if err := out.Close(); err != nil {
		return meta, err
	}
	if err := dir.Sync([]string{name}); err != nil {
		return meta, err
	}
	meta.LiveDocsCount = liveDocsCount
	return meta, nil
}

func frame(formatName string, payload []byte) []byte {
	buf := store.WriteHeader(nil, formatName, formatVersion)
	buf = append(buf, payload...)
	return store.WriteFooter(buf)
}

func encodeColumns(columns []pendingColumn) (csPayload, csiPayload []byte) {
	csiPayload = enc.PutUvarint(csiPayload, uint64(len(columns)))
	for _, c := range columns {
		h := c.sealed.Header
		csiPayload = enc.PutUvarint(csiPayload, uint64(h.ID))
		csiPayload = enc.PutUvarint(csiPayload, uint64(h.MinDoc))
		csiPayload = enc.PutUvarint(csiPayload, h.DocsCount)
		csiPayload = append(csiPayload, byte(h.Type))
		csiPayload = append(csiPayload, byte(h.Properties))
		csiPayload = enc.PutUvarint(csiPayload, h.BitmapIndexOffset)
		csiPayload = enc.PutUvarint(csiPayload, uint64(len(csPayload)))
		csiPayload = enc.PutUvarint(csiPayload, uint64(len(c.sealed.DataBytes)))
		csiPayload = enc.PutUvarint(csiPayload, uint64(len(c.sealed.IndexBytes)))
		csiPayload = append(csiPayload, c.sealed.IndexBytes...)
		csPayload = append(csPayload, c.sealed.DataBytes...)
	}
	return csPayload, csiPayload
}

func encodeFields(w *Writer) (docPayload, tmPayload, tiPayload []byte) {
	tmPayload = enc.PutUvarint(tmPayload, uint64(len(w.fieldOrder)))
	for _, name := range w.fieldOrder {
		fb := w.fields[name]
		var terms []string
		for t := range fb.terms {
			terms = append(terms, t)
		}
		sort.Strings(terms)

		builder := termdict.NewBuilder()
		for _, t := range terms {
			sealed := fb.terms[t].Finish()
			encoded := postings.Encode(sealed)
			ptr := uint64(len(docPayload))
			docPayload = enc.PutUvarint(docPayload, uint64(len(encoded)))
			docPayload = append(docPayload, encoded...)
			_ = builder.Add([]byte(t), sealed.Meta, ptr)
		}
		dict, err := builder.Finish()
		if err != nil {
			// A term dictionary only fails to build on FST construction
			// errors, which never happen for well-formed ascending byte
			// strings; no field's term set can trigger this path.
			continue
		}
		blocksAndMeta, fstBytes := termdict.Encode(dict)

		tmPayload = enc.PutUvarint(tmPayload, uint64(fb.id))
		tmPayload = enc.PutUvarint(tmPayload, uint64(len(fb.name)))
		tmPayload = append(tmPayload, fb.name...)
		tmPayload = append(tmPayload, byte(fb.features))
		tmPayload = enc.PutUvarint(tmPayload, uint64(fb.normID))
		tmPayload = enc.PutUvarint(tmPayload, uint64(len(blocksAndMeta)))
		tmPayload = append(tmPayload, blocksAndMeta...)

		tiPayload = append(tiPayload, fstBytes...)
		tmPayload = enc.PutUvarint(tmPayload, uint64(len(fstBytes)))
	}
	return docPayload, tmPayload, tiPayload
}

func encodeFieldMeta(w *Writer) []byte {
	var buf []byte
	buf = enc.PutUvarint(buf, uint64(len(w.fieldOrder)))
	for _, name := range w.fieldOrder {
		fb := w.fields[name]
		buf = enc.PutUvarint(buf, uint64(fb.id))
		buf = enc.PutUvarint(buf, uint64(len(fb.name)))
		buf = append(buf, fb.name...)
		buf = append(buf, byte(fb.features))
		if fb.norm != nil {
			buf = enc.PutUvarint(buf, 1)
			buf = enc.PutUvarint(buf, uint64(len(glint.NormFeature)))
			buf = append(buf, glint.NormFeature...)
			buf = enc.PutUvarint(buf, uint64(fb.normID))
		} else {
			buf = enc.PutUvarint(buf, 0)
		}
	}
	return buf
}

func encodeSegmentMeta(meta glint.SegmentMeta) []byte {
	var buf []byte
	buf = enc.PutUvarint(buf, uint64(len(meta.Name)))
	buf = append(buf, meta.Name...)
	buf = enc.PutUvarint(buf, uint64(meta.Version))
	buf = enc.PutUvarint(buf, meta.DocsCount)
	buf = enc.PutUvarint(buf, meta.LiveDocsCount)
	buf = enc.PutUvarint(buf, uint64(len(meta.CodecRef)))
	buf = append(buf, meta.CodecRef...)
	if meta.HasSortColumn {
		buf = append(buf, 1)
		buf = enc.PutUvarint(buf, uint64(meta.SortColumnID))
	} else {
		buf = append(buf, 0)
	}
	return buf
}
