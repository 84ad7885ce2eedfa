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

package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderFooterRoundTrip(t *testing.T) {
	buf := WriteHeader(nil, "glint.columnstore", 1)
	buf = append(buf, []byte("payload bytes")...)
	buf = WriteFooter(buf)

	name, version, n, err := ReadHeader(buf)
	require.NoError(t, err)
	require.Equal(t, "glint.columnstore", name)
	require.EqualValues(t, 1, version)
	require.Greater(t, n, 0)

	require.NoError(t, CheckFooter(buf))
}

func TestCheckFooterDetectsCorruption(t *testing.T) {
	buf := WriteHeader(nil, "glint.sm", 1)
	buf = append(buf, []byte("payload")...)
	buf = WriteFooter(buf)

	buf[len(buf)/2] ^= 0xFF
	require.Error(t, CheckFooter(buf))
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	_, _, _, err := ReadHeader([]byte{0, 0, 0, 0})
	require.Error(t, err)
}
