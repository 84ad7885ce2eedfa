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

package columnstore

import (
	"github.com/nakama-labs/glint/crypto"
	"github.com/nakama-labs/glint/glint"
)

// DenseFixedBuilder produces the DenseFixed layout: like Fixed, but
// reserved for the merge writer's unsorted output path (ice/v2/
// merge.go reallocates doc ids contiguously from zero as segments are
// combined), where every doc in the merged range is known in advance
// to carry a value of the same length and no bitmap index is ever
// needed because the doc set is exactly [MinDoc, MinDoc+DocsCount).
type DenseFixedBuilder struct {
	fieldID  glint.FieldID
	name     string
	noName   bool
	cipher   crypto.Cipher
	fixedLen int
	minDoc   glint.DocID
	values   [][]byte
}

// NewDenseFixedBuilder starts a DenseFixed column covering docs
// [minDoc, minDoc+N) with a fixed value length.
func NewDenseFixedBuilder(fieldID glint.FieldID, name string, cipher crypto.Cipher, minDoc glint.DocID, fixedLen int) *DenseFixedBuilder {
	if cipher == nil {
		cipher = crypto.Identity{}
	}
	return &DenseFixedBuilder{
		fieldID: fieldID, name: name, noName: name == "", cipher: cipher,
		fixedLen: fixedLen, minDoc: minDoc,
	}
}

// Append adds the next contiguous document's value; the caller is
// responsible for supplying values in doc-id order with no gaps.
func (b *DenseFixedBuilder) Append(value []byte) {
	b.values = append(b.values, append([]byte(nil), value...))
}

// Finish seals the builder.
func (b *DenseFixedBuilder) Finish() Sealed {
	w := &Writer{fieldID: b.fieldID, name: b.name, noName: b.noName, cipher: b.cipher, fixedLen: b.fixedLen, anyValue: true}
	for i, v := range b.values {
		w.docs = append(w.docs, uint32(b.minDoc)+uint32(i))
		w.values = append(w.values, v)
	}
	sealed := w.finishFixed()
	sealed.Header.Type = glint.ColumnDenseFixed
	return sealed
}
