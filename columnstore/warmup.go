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

import "github.com/nakama-labs/glint/glinterr"

// MemoryAccountant is consulted before a Column's data region is
// pulled fully into memory during warmup. Returning an error denies
// the allocation without failing the surrounding read: the column
// falls back to on-demand block access.
type MemoryAccountant interface {
	Reserve(bytes int64) error
	Release(bytes int64)
}

// UnboundedAccountant never denies a reservation; the default when no
// accounting policy is configured.
type UnboundedAccountant struct{}

func (UnboundedAccountant) Reserve(int64) error { return nil }

func (UnboundedAccountant) Release(int64) {}

// Warmup pulls a column's data region fully into a resident buffer,
// subject to accountant's approval. On denial it returns an error
// wrapping glinterr.ErrIO and leaves the column unchanged and still
// readable: callers should treat a denied warmup as advisory and
// continue reading the column on demand.
func Warmup(c *Column, accountant MemoryAccountant) error {
	if accountant == nil {
		accountant = UnboundedAccountant{}
	}
	size := int64(len(c.data))
	if err := accountant.Reserve(size); err != nil {
		return glinterr.Wrap(glinterr.ErrIO, "columnstore: warmup denied", err)
	}
	// c.data is already resident (OpenColumn is handed the full data
	// slice up front); Warmup's accounting gate exists so a caller
	// iterating many columns can cap total resident bytes without the
	// Column type itself needing a lazy-vs-resident mode switch.
	c.warm = true
	c.warmBytes = size
	c.accountant = accountant
	return nil
}

// Release gives back a column's accounted warmup bytes, if any.
func (c *Column) Release() {
	if c.warm && c.accountant != nil {
		c.accountant.Release(c.warmBytes)
		c.warm = false
	}
}
