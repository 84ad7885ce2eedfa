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

package skiplist

import (
	"encoding/binary"

	"github.com/nakama-labs/glint/glinterr"
)

// Marshal serializes the levels (finest first) as a varint level
// count, then per level a varint record count followed by
// {lastDoc, pointer, aux} varint triples.
func Marshal(levels [][]Record) []byte {
	out := make([]byte, 0, 64)
	var tmp [binary.MaxVarintLen64]byte
	putUv := func(v uint64) {
		n := binary.PutUvarint(tmp[:], v)
		out = append(out, tmp[:n]...)
	}
	putUv(uint64(len(levels)))
	for _, level := range levels {
		putUv(uint64(len(level)))
		for _, rec := range level {
			putUv(rec.LastDoc)
			putUv(rec.Pointer)
			putUv(rec.Aux)
		}
	}
	return out
}

// Unmarshal parses bytes produced by Marshal.
func Unmarshal(buf []byte) ([][]Record, error) {
	off := 0
	readUv := func() (uint64, error) {
		v, n := binary.Uvarint(buf[off:])
		if n <= 0 {
			return 0, glinterr.Wrap(glinterr.ErrIndex, "skiplist: truncated data", nil)
		}
		off += n
		return v, nil
	}
	numLevels, err := readUv()
	if err != nil {
		return nil, err
	}
	levels := make([][]Record, numLevels)
	for l := range levels {
		n, err := readUv()
		if err != nil {
			return nil, err
		}
		recs := make([]Record, n)
		for i := range recs {
			last, err := readUv()
			if err != nil {
				return nil, err
			}
			ptr, err := readUv()
			if err != nil {
				return nil, err
			}
			aux, err := readUv()
			if err != nil {
				return nil, err
			}
			recs[i] = Record{LastDoc: last, Pointer: ptr, Aux: aux}
		}
		levels[l] = recs
	}
	if err := ValidateLevels(levels); err != nil {
		return nil, err
	}
	return levels, nil
}
