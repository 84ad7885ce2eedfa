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
	"testing"

	"github.com/stretchr/testify/require"
)

func buildSkip(t *testing.T, skip0, skipN int, numBlocks int) *Writer {
	t.Helper()
	w := NewWriter(skip0, skipN)
	for i := 0; i < numBlocks; i++ {
		lastDoc := uint64((i + 1) * skip0)
		w.Append(lastDoc, uint64(i*37), uint64(i))
	}
	return w
}

func TestWriterPromotesDeterministically(t *testing.T) {
	w := buildSkip(t, 128, 4, 16)
	require.Equal(t, 16, len(w.Levels()[0]))
	require.Equal(t, 4, len(w.Levels()[1]))
	require.Equal(t, 1, len(w.Levels()[2]))
}

func TestSeekFindsFirstGE(t *testing.T) {
	w := buildSkip(t, 128, 4, 20)
	r := NewReader(w.Levels(), 4)
	rec, ok := r.Seek(1)
	require.True(t, ok)
	require.Equal(t, uint64(128), rec.LastDoc)

	rec, ok = r.Seek(128)
	require.True(t, ok)
	require.Equal(t, uint64(128), rec.LastDoc)

	rec, ok = r.Seek(129)
	require.True(t, ok)
	require.Equal(t, uint64(256), rec.LastDoc)

	_, ok = r.Seek(20 * 128 + 1)
	require.False(t, ok)
}

func TestResetRewindsEveryLevel(t *testing.T) {
	w := buildSkip(t, 8, 2, 32)
	r := NewReader(w.Levels(), 2)
	_, ok := r.Seek(200)
	require.True(t, ok)
	r.Reset()
	for _, p := range r.pos {
		require.Equal(t, 0, p)
	}
	rec, ok := r.Seek(1)
	require.True(t, ok)
	require.Equal(t, uint64(8), rec.LastDoc)
}

func TestMarshalRoundTrip(t *testing.T) {
	w := buildSkip(t, 64, 3, 40)
	buf := Marshal(w.Levels())
	got, err := Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, w.Levels(), got)
}

func TestLevelCountBoundedByLogSkipN(t *testing.T) {
	// the spec bounds level count by 1 + log_skipN(docCount/skip0); a
	// writer fed 1000 blocks at skip0=1, skipN=4 should not explode
	// past a handful of levels.
	w := NewWriter(1, 4)
	for i := 0; i < 1000; i++ {
		w.Append(uint64(i+1), uint64(i), 0)
	}
	require.LessOrEqual(t, w.NumLevels(), 6)
}
