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

	"github.com/nakama-labs/glint/glinterr"
)

func testDirectory(t *testing.T, dir Directory) {
	t.Helper()

	out, err := dir.Create("a.seg")
	require.NoError(t, err)
	_, err = out.Write([]byte("hello"))
	require.NoError(t, err)
	_, err = out.Write([]byte(" world"))
	require.NoError(t, err)
	require.NotZero(t, out.Checksum())
	require.NoError(t, out.Close())

	exists, err := dir.Exists("a.seg")
	require.NoError(t, err)
	require.True(t, exists)

	in, err := dir.Open("a.seg", AdviceNormal)
	require.NoError(t, err)
	defer in.Close()

	buf := make([]byte, 11)
	n, err := in.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 11, n)
	require.Equal(t, "hello world", string(buf))

	dup, err := in.Dup()
	require.NoError(t, err)
	defer dup.Close()
	buf2 := make([]byte, 5)
	_, err = dup.ReadAt(buf2, 6)
	require.NoError(t, err)
	require.Equal(t, "world", string(buf2))

	require.NoError(t, dir.Rename("a.seg", "b.seg"))
	exists, err = dir.Exists("a.seg")
	require.NoError(t, err)
	require.False(t, exists)

	l, err := dir.MakeLock("b.lock")
	require.NoError(t, err)
	_, err = dir.MakeLock("b.lock")
	require.ErrorIs(t, err, glinterr.ErrLockObtainFailed)
	require.NoError(t, l.Unlock())

	require.NoError(t, dir.Remove("b.seg"))
	exists, err = dir.Exists("b.seg")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestMemDirectory(t *testing.T) {
	testDirectory(t, NewMemDirectory())
}

func TestFSDirectory(t *testing.T) {
	d, err := NewFSDirectory(t.TempDir())
	require.NoError(t, err)
	testDirectory(t, d)
}
