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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nakama-labs/glint/glint"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	w := NewWriter(glint.FeatureFreq | glint.FeaturePos)
	require.NoError(t, w.Add(1, 2, []glint.Position{{Pos: 0}, {Pos: 4, Payload: []byte("x")}}))
	require.NoError(t, w.Add(130, 1, []glint.Position{{Pos: 2, Offset: &glint.OffsetRange{Start: 10, End: 14}}}))
	sealed := w.Finish()

	buf := Encode(sealed)
	decoded, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, sealed.Meta, decoded.Meta)
	require.Equal(t, len(sealed.Blocks), len(decoded.Blocks))

	it := NewIterator(decoded)
	doc, freq, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, glint.DocID(1), doc)
	require.EqualValues(t, 2, freq)
	pit := it.Positions()
	p, ok := pit.Next()
	require.True(t, ok)
	require.EqualValues(t, 0, p.Pos)

	doc, _, err = it.Next()
	require.NoError(t, err)
	require.Equal(t, glint.DocID(130), doc)
	pit = it.Positions()
	p, ok = pit.Next()
	require.True(t, ok)
	require.EqualValues(t, 2, p.Pos)
	require.NotNil(t, p.Offset)
	require.EqualValues(t, 10, p.Offset.Start)
}
