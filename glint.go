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

// Package glint implements an embeddable, segmented full-text search
// and analytics engine. A Glint index is a versioned, append-only
// collection of immutable segments; this package holds the shared data
// model (DocID, field/column metadata, index/segment metadata) that
// every other package in the module builds on.
package glint

// DocID identifies a document within a single segment. Ids are
// assigned monotonically starting at MinDocID as documents are
// inserted into a segment writer.
type DocID uint32

const (
	// InvalidDocID is the reserved zero value; never assigned to a real
	// document.
	InvalidDocID DocID = 0
	// EOFDocID terminates iteration; no real document ever carries it.
	EOFDocID DocID = 0xFFFFFFFF
	// MinDocID is the first id a segment writer assigns.
	MinDocID DocID = 1
)

// FieldID identifies a field, and doubles as a column id since fields
// and columns share the same id space.
type FieldID uint64

// InvalidFieldID is the reserved sentinel for "no field".
const InvalidFieldID FieldID = 0

// IndexFeature is a bit in a field's feature set.
type IndexFeature uint8

const (
	FeatureFreq IndexFeature = 1 << iota
	FeaturePos
	FeatureOffsets
	FeaturePayloads
)

// FeatureSet is a bitset of IndexFeature values honoring the
// POS⇒FREQ, OFFS⇒POS, PAY⇒POS implication invariants.
type FeatureSet uint8

// Has reports whether f is set.
func (s FeatureSet) Has(f IndexFeature) bool { return s&FeatureSet(f) != 0 }

// Validate enforces the feature-implication invariants from the field
// meta data model.
func (s FeatureSet) Validate() error {
	if s.Has(FeaturePos) && !s.Has(FeatureFreq) {
		return errFeatureImplication("POS", "FREQ")
	}
	if s.Has(FeatureOffsets) && !s.Has(FeaturePos) {
		return errFeatureImplication("OFFS", "POS")
	}
	if s.Has(FeaturePayloads) && !s.Has(FeaturePos) {
		return errFeatureImplication("PAY", "POS")
	}
	return nil
}

// FeatureKind names a derived per-document statistic (e.g. "norm")
// mapped to the column that stores it via FieldMeta.FeatureMap.
type FeatureKind string

// NormFeature is the well-known feature kind for field-length norms
// consumed by the TF-IDF/BM25 scorers.
const NormFeature FeatureKind = "norm"

// FieldMeta is the per-field metadata carried in a segment's field
// metadata file (extension "fm").
type FieldMeta struct {
	Name         string
	IndexFeature FeatureSet
	FeatureMap   map[FeatureKind]FieldID
}

// ColumnType selects one of the four columnstore physical layouts.
type ColumnType uint8

const (
	ColumnSparse ColumnType = iota
	ColumnMask
	ColumnFixed
	ColumnDenseFixed
)

func (t ColumnType) String() string {
	switch t {
	case ColumnSparse:
		return "Sparse"
	case ColumnMask:
		return "Mask"
	case ColumnFixed:
		return "Fixed"
	case ColumnDenseFixed:
		return "DenseFixed"
	default:
		return "Unknown"
	}
}

// ColumnProperty is a bit in a column header's properties bitset.
type ColumnProperty uint8

const (
	PropEncrypted ColumnProperty = 1 << iota
	PropNoName
	PropTrackPrevDoc
)

// ColumnHeader is the on-disk header describing one column.
type ColumnHeader struct {
	ID                FieldID
	MinDoc            DocID
	DocsCount         uint64
	Type              ColumnType
	Properties        ColumnProperty
	BitmapIndexOffset uint64
}

// Validate enforces "DocsCount == 0 is legal only for Mask".
func (h ColumnHeader) Validate() error {
	if h.DocsCount == 0 && h.Type != ColumnMask {
		return errMaskOnlyZeroDocs(h.Type)
	}
	return nil
}

// Position is one occurrence of a term within a document.
type Position struct {
	Pos     uint64
	Offset  *OffsetRange
	Payload []byte
}

// OffsetRange is the byte span of a term occurrence in the original
// source text.
type OffsetRange struct {
	Start, End uint64
}

// Posting is one document's entry in a term's postings list.
type Posting struct {
	DocID     DocID
	TermFreq  uint64
	Positions []Position
}

// TermMeta is the summary statistics stored alongside a term's
// postings pointer.
type TermMeta struct {
	DocsCount uint64
	TotalFreq uint64
}

// Term pairs a term's bytes with its metadata and an opaque pointer
// into the postings stream.
type Term struct {
	Bytes            []byte
	Meta             TermMeta
	PostingsPointer  uint64
}

// SegmentMeta fully describes one immutable segment.
type SegmentMeta struct {
	Name            string
	Version         uint32
	DocsCount       uint64
	LiveDocsCount   uint64
	ByteSize        uint64
	CodecRef        string
	Files           []string
	ColumnStore     bool
	SortColumnID    FieldID
	HasSortColumn   bool
}

// Validate enforces the permanent live-docs invariant.
func (m SegmentMeta) Validate() error {
	if m.LiveDocsCount > m.DocsCount {
		return errLiveExceedsTotal(m.Name, m.LiveDocsCount, m.DocsCount)
	}
	return nil
}

// IndexMeta is the versioned, monotonically-generationed description
// of the live segment set.
type IndexMeta struct {
	Generation uint64
	Counter    uint64
	Segments   []SegmentMeta
	Payload    []byte
}

// CollectionStats summarizes a field's statistics within one segment,
// consumed by the scoring package's collectors.
type CollectionStats struct {
	DocCount         uint64
	SumTotalTermFreq uint64
	SumDocFreq       uint64
}
