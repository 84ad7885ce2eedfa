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

package postings

import (
	"github.com/nakama-labs/glint/enc"
	"github.com/nakama-labs/glint/glint"
	"github.com/nakama-labs/glint/glinterr"
	"github.com/nakama-labs/glint/skiplist"
)

// Encode serializes sealed to bytes for the "doc"/"pos"/"pay"/"ti"/"tm"
// file family: blocks of doc-delta/freq data, followed by positions
// (when present), then the skip levels.
func Encode(s Sealed) []byte {
	var buf []byte
	buf = enc.PutUvarint(buf, s.Meta.DocsCount)
	buf = enc.PutUvarint(buf, s.Meta.TotalFreq)
	buf = enc.PutUvarint(buf, uint64(len(s.Blocks)))
	hasPositions := len(s.Blocks) > 0 && s.Blocks[0].Positions != nil
	if hasPositions {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	for _, b := range s.Blocks {
		buf = enc.PutUvarint(buf, uint64(b.LastDoc))
		buf = enc.PutUvarint(buf, uint64(b.DocCount))
		buf = append(buf, byte(b.Bits))
		buf = enc.PutUvarint(buf, uint64(len(b.DocDelta)))
		buf = append(buf, b.DocDelta...)
		hasFreq := b.Freqs != nil
		if hasFreq {
			buf = append(buf, 1)
			buf = append(buf, byte(b.FreqBits))
			buf = enc.PutUvarint(buf, uint64(len(b.Freqs)))
			buf = append(buf, b.Freqs...)
		} else {
			buf = append(buf, 0)
		}
		if hasPositions {
			buf = encodePositionsBlock(buf, b.Positions)
		}
	}
	buf = enc.PutUvarint(buf, uint64(s.SkipN))
	buf = enc.PutUvarint(buf, uint64(len(s.SkipLevels)))
	for _, level := range s.SkipLevels {
		buf = enc.PutUvarint(buf, uint64(len(level)))
		for _, rec := range level {
			buf = enc.PutUvarint(buf, rec.LastDoc)
			buf = enc.PutUvarint(buf, rec.Pointer)
			buf = enc.PutUvarint(buf, rec.Aux)
		}
	}
	return buf
}

func encodePositionsBlock(buf []byte, perDoc [][]glint.Position) []byte {
	buf = enc.PutUvarint(buf, uint64(len(perDoc)))
	for _, positions := range perDoc {
		buf = enc.PutUvarint(buf, uint64(len(positions)))
		prev := uint64(0)
		for _, p := range positions {
			buf = enc.PutVarint(buf, int64(p.Pos-prev))
			prev = p.Pos
			if p.Offset != nil {
				buf = append(buf, 1)
				buf = enc.PutUvarint(buf, p.Offset.Start)
				buf = enc.PutUvarint(buf, p.Offset.End)
			} else {
				buf = append(buf, 0)
			}
			buf = enc.PutUvarint(buf, uint64(len(p.Payload)))
			buf = append(buf, p.Payload...)
		}
	}
	return buf
}

// Decode parses bytes previously produced by Encode.
func Decode(buf []byte) (Sealed, error) {
	var s Sealed
	off := 0
	v, n, err := enc.ReadUvarint(buf, off)
	if err != nil {
		return s, err
	}
	s.Meta.DocsCount = v
	off += n
	v, n, err = enc.ReadUvarint(buf, off)
	if err != nil {
		return s, err
	}
	s.Meta.TotalFreq = v
	off += n
	numBlocks, n, err := enc.ReadUvarint(buf, off)
	if err != nil {
		return s, err
	}
	off += n
	if off >= len(buf) {
		return s, glinterr.Wrap(glinterr.ErrIndex, "postings: truncated positions flag", nil)
	}
	hasPositions := buf[off] == 1
	off++

	s.Blocks = make([]Block, numBlocks)
	for i := range s.Blocks {
		var b Block
		v, n, err = enc.ReadUvarint(buf, off)
		if err != nil {
			return s, err
		}
		b.LastDoc = uint32(v)
		off += n
		v, n, err = enc.ReadUvarint(buf, off)
		if err != nil {
			return s, err
		}
		b.DocCount = int(v)
		off += n
		if off >= len(buf) {
			return s, glinterr.Wrap(glinterr.ErrIndex, "postings: truncated block bits", nil)
		}
		b.Bits = uint(buf[off])
		off++
		dlen, n, err := enc.ReadUvarint(buf, off)
		if err != nil {
			return s, err
		}
		off += n
		b.DocDelta = buf[off : off+int(dlen)]
		off += int(dlen)
		if off >= len(buf) {
			return s, glinterr.Wrap(glinterr.ErrIndex, "postings: truncated freq flag", nil)
		}
		hasFreq := buf[off] == 1
		off++
		if hasFreq {
			b.FreqBits = uint(buf[off])
			off++
			flen, n, err := enc.ReadUvarint(buf, off)
			if err != nil {
				return s, err
			}
			off += n
			b.Freqs = buf[off : off+int(flen)]
			off += int(flen)
		}
		if hasPositions {
			positions, n, err := decodePositionsBlock(buf, off)
			if err != nil {
				return s, err
			}
			b.Positions = positions
			off = n
		}
		s.Blocks[i] = b
	}

	skipN, n, err := enc.ReadUvarint(buf, off)
	if err != nil {
		return s, err
	}
	s.SkipN = int(skipN)
	off += n
	numLevels, n, err := enc.ReadUvarint(buf, off)
	if err != nil {
		return s, err
	}
	off += n
	s.SkipLevels = make([][]skiplist.Record, numLevels)
	for i := range s.SkipLevels {
		numRecs, n, err := enc.ReadUvarint(buf, off)
		if err != nil {
			return s, err
		}
		off += n
		recs := make([]skiplist.Record, numRecs)
		for j := range recs {
			var rec skiplist.Record
			rec.LastDoc, n, err = enc.ReadUvarint(buf, off)
			if err != nil {
				return s, err
			}
			off += n
			rec.Pointer, n, err = enc.ReadUvarint(buf, off)
			if err != nil {
				return s, err
			}
			off += n
			rec.Aux, n, err = enc.ReadUvarint(buf, off)
			if err != nil {
				return s, err
			}
			off += n
			recs[j] = rec
		}
		s.SkipLevels[i] = recs
	}
	if err := skiplist.ValidateLevels(s.SkipLevels); err != nil {
		return s, err
	}
	return s, nil
}

func decodePositionsBlock(buf []byte, off int) ([][]glint.Position, int, error) {
	count, n, err := enc.ReadUvarint(buf, off)
	if err != nil {
		return nil, 0, err
	}
	off += n
	out := make([][]glint.Position, count)
	for i := range out {
		plen, n, err := enc.ReadUvarint(buf, off)
		if err != nil {
			return nil, 0, err
		}
		off += n
		positions := make([]glint.Position, plen)
		prev := uint64(0)
		for j := range positions {
			delta, n, err := enc.ReadVarint(buf, off)
			if err != nil {
				return nil, 0, err
			}
			off += n
			prev = uint64(int64(prev) + delta)
			pos := glint.Position{Pos: prev}
			if off >= len(buf) {
				return nil, 0, glinterr.Wrap(glinterr.ErrIndex, "postings: truncated offset flag", nil)
			}
			hasOffset := buf[off] == 1
			off++
			if hasOffset {
				var start, end uint64
				start, n, err = enc.ReadUvarint(buf, off)
				if err != nil {
					return nil, 0, err
				}
				off += n
				end, n, err = enc.ReadUvarint(buf, off)
				if err != nil {
					return nil, 0, err
				}
				off += n
				pos.Offset = &glint.OffsetRange{Start: start, End: end}
			}
			paylen, n, err := enc.ReadUvarint(buf, off)
			if err != nil {
				return nil, 0, err
			}
			off += n
			if paylen > 0 {
				pos.Payload = buf[off : off+int(paylen)]
				off += int(paylen)
			}
			positions[j] = pos
		}
		out[i] = positions
	}
	return out, off, nil
}
