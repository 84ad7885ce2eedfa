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

package merge

import (
	"sort"

	"github.com/nakama-labs/glint/columnstore"
	"github.com/nakama-labs/glint/crypto"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/postings"
	"github.com/nakama-labs/glint/segment"
	"github.com/nakama-labs/glint/store"
)

type columnTuple struct {
	doc   glint.DocID
	value []byte
}

type termTuple struct {
	doc       glint.DocID
	freq      uint64
	positions []glint.Position
}

// Merge combines readers into one new segment named outName, written
// to dir. When sorted, every reader must carry a sort column and the
// output document order follows it; otherwise output DocIds are
// assigned in reader order. The per-input DocMap used to build the
// output is returned alongside the new segment's meta so a caller
// (the index package's consolidation path) can remap masks from a
// commit that intervened while the merge was running.
func Merge(readers []*segment.Reader, sorted bool, outName string, dir store.Directory, cipher crypto.Cipher) (glint.SegmentMeta, []DocMap, error) {
	var docMaps []DocMap
	var total uint64
	var err error
	if sorted {
		docMaps, total, err = BuildSortedDocMaps(readers)
		if err != nil {
			return glint.SegmentMeta{}, nil, err
		}
	} else {
		docMaps, total = BuildUnsortedDocMaps(readers)
	}

	ow := segment.NewWriter(cipher)

	if err := mergeColumns(ow, readers, docMaps); err != nil {
		return glint.SegmentMeta{}, nil, err
	}
	if sorted {
		if err := mergeSortColumn(ow, readers, docMaps); err != nil {
			return glint.SegmentMeta{}, nil, err
		}
	}
	if err := mergeFields(ow, readers, docMaps); err != nil {
		return glint.SegmentMeta{}, nil, err
	}

	ow.SetDocCounts(total)
	meta, err := ow.Flush(glint.SegmentMeta{Name: outName, Version: 1}, dir)
	return meta, docMaps, err
}

func unionColumnNames(readers []*segment.Reader) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range readers {
		for _, n := range r.ColumnNames() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names
}

func unionFieldNames(readers []*segment.Reader) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range readers {
		for _, n := range r.FieldNames() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names
}

func mergeColumns(ow *segment.Writer, readers []*segment.Reader, docMaps []DocMap) error {
	for _, name := range unionColumnNames(readers) {
		var tuples []columnTuple
		for i, r := range readers {
			col, ok := r.Column(name)
			if !ok {
				continue
			}
			it := col.Iterator(columnstore.HintNone, nil)
			for it.Next() {
				out, live := docMaps[i].Lookup(it.Doc())
				if !live {
					continue
				}
				tuples = append(tuples, columnTuple{doc: out, value: append([]byte(nil), it.Value()...)})
			}
		}
		sort.Slice(tuples, func(a, b int) bool { return tuples[a].doc < tuples[b].doc })
		for _, t := range tuples {
			if err := ow.MergeColumn(name, t.doc, t.value); err != nil {
				return err
			}
		}
	}
	return nil
}

func mergeSortColumn(ow *segment.Writer, readers []*segment.Reader, docMaps []DocMap) error {
	var tuples []columnTuple
	for i, r := range readers {
		col, ok := r.SortColumn()
		if !ok {
			continue
		}
		it := col.Iterator(columnstore.HintNone, nil)
		for it.Next() {
			out, live := docMaps[i].Lookup(it.Doc())
			if !live {
				continue
			}
			tuples = append(tuples, columnTuple{doc: out, value: append([]byte(nil), it.Value()...)})
		}
	}
	sort.Slice(tuples, func(a, b int) bool { return tuples[a].doc < tuples[b].doc })
	for _, t := range tuples {
		if err := ow.MergeSortColumn(t.doc, t.value); err != nil {
			return err
		}
	}
	return nil
}

func mergeFields(ow *segment.Writer, readers []*segment.Reader, docMaps []DocMap) error {
	for _, name := range unionFieldNames(readers) {
		var features glint.FeatureSet
		for _, r := range readers {
			if fr, ok := r.Field(name); ok {
				features = fr.Features
				break
			}
		}
		ow.MergeField(name, features)

		terms := make(map[string]bool)
		for _, r := range readers {
			fr, ok := r.Field(name)
			if !ok {
				continue
			}
			seq := fr.Dict.Sequential()
			for seq.Next() {
				terms[string(seq.Current().Term)] = true
			}
		}
		sortedTerms := make([]string, 0, len(terms))
		for t := range terms {
			sortedTerms = append(sortedTerms, t)
		}
		sort.Strings(sortedTerms)

		for _, term := range sortedTerms {
			var tuples []termTuple
			for i, r := range readers {
				fr, ok := r.Field(name)
				if !ok {
					continue
				}
				entry, found, err := fr.Dict.SeekExact([]byte(term))
				if err != nil {
					return err
				}
				if !found {
					continue
				}
				sealed, err := fr.Postings(entry.Postings)
				if err != nil {
					return err
				}
				pit := postings.NewIterator(sealed)
				for {
					doc, freq, err := pit.Next()
					if err != nil {
						return err
					}
					if doc == glint.EOFDocID {
						break
					}
					out, live := docMaps[i].Lookup(doc)
					if !live {
						continue
					}
					var positions []glint.Position
					if features.Has(glint.FeaturePos) {
						pi := pit.Positions()
						for {
							p, ok := pi.Next()
							if !ok {
								break
							}
							positions = append(positions, p)
						}
					}
					tuples = append(tuples, termTuple{doc: out, freq: freq, positions: positions})
				}
			}
			sort.Slice(tuples, func(a, b int) bool { return tuples[a].doc < tuples[b].doc })
			for _, t := range tuples {
				if err := ow.MergeTerm(name, features, []byte(term), t.doc, t.freq, t.positions); err != nil {
					return err
				}
			}
		}

		if err := mergeNormColumn(ow, readers, docMaps, name); err != nil {
			return err
		}
	}
	return nil
}

func mergeNormColumn(ow *segment.Writer, readers []*segment.Reader, docMaps []DocMap, field string) error {
	var tuples []columnTuple
	any := false
	for i, r := range readers {
		col, ok := r.NormColumn(field)
		if !ok {
			continue
		}
		any = true
		it := col.Iterator(columnstore.HintNone, nil)
		for it.Next() {
			out, live := docMaps[i].Lookup(it.Doc())
			if !live {
				continue
			}
			tuples = append(tuples, columnTuple{doc: out, value: append([]byte(nil), it.Value()...)})
		}
	}
	if !any {
		return nil
	}
	sort.Slice(tuples, func(a, b int) bool { return tuples[a].doc < tuples[b].doc })
	for _, t := range tuples {
		var features glint.FeatureSet
		for _, r := range readers {
			if fr, ok := r.Field(field); ok {
				features = fr.Features
				break
			}
		}
		if err := ow.MergeNorm(field, features, t.doc, t.value); err != nil {
			return err
		}
	}
	return nil
}
