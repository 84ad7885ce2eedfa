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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nakama-labs/glint/glint"
)

func TestCodecRoundTrip(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add([]byte("apple"), glint.TermMeta{DocsCount: 1, TotalFreq: 1}, 10))
	require.NoError(t, b.Add([]byte("banana"), glint.TermMeta{DocsCount: 2, TotalFreq: 3}, 20))
	require.NoError(t, b.Add([]byte("cat"), glint.TermMeta{DocsCount: 1, TotalFreq: 1}, 30))
	d, err := b.Finish()
	require.NoError(t, err)

	blocksAndMeta, fstBytes := Encode(d)
	require.NotEmpty(t, fstBytes)

	d2, err := Decode(blocksAndMeta, fstBytes)
	require.NoError(t, err)
	require.Equal(t, d.Size(), d2.Size())
	require.Equal(t, d.DocsCount(), d2.DocsCount())
	require.Equal(t, d.Min(), d2.Min())
	require.Equal(t, d.Max(), d2.Max())

	e, ok, err := d2.SeekExact([]byte("banana"))
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 20, e.Postings)
	require.EqualValues(t, 2, e.Meta.DocsCount)
}
