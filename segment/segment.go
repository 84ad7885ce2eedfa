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

// Package segment implements Glint's segment writer and reader: the
// per-document ingest pipeline (begin/insert/commit/rollback/flush)
// described in spec.md §4.7, and the read side that reopens a
// segment's file family (sm/cs/csi/ti/tm/doc/pos/pay/fm/f2/2pk/doc_mask)
// from a store.Directory.
//
// Grounded on ice/segment.go's SegmentBase (the struct that aggregates
// a field dictionary, a docValues reader, and a deletions bitset
// behind one immutable segment handle) generalized to Glint's explicit
// column/term/postings split.
package segment

import "github.com/nakama-labs/glint/glint"

// Token is one analyzed occurrence fed to InsertIndexed.
type Token struct {
	Term    []byte
	Pos     uint64
	Offset  *glint.OffsetRange
	Payload []byte
}

// fileExtensions lists every extension a flushed segment may emit, in
// the order spec.md §6 names them.
var fileExtensions = []string{"sm", "cs", "csi", "ti", "tm", "doc", "pos", "pay", "fm", "f2", "2pk", "doc_mask"}

func fileName(segmentName, ext string) string { return segmentName + "." + ext }
