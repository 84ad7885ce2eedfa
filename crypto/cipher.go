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

// Package crypto names the Cipher contract columnstore and segment
// writers use when a column or file is marked Encrypted. Concrete
// cipher implementations are an external collaborator (spec.md §1);
// this package only fixes the interface and offers a no-op Identity
// cipher for tests that don't exercise encryption.
package crypto

// Cipher encrypts/decrypts fixed-size blocks, keyed entirely by
// absolute byte offset rather than a persisted IV: the same plaintext
// at two different offsets must encrypt differently.
type Cipher interface {
	BlockSize() int
	Encrypt(offset int64, buf []byte) error
	Decrypt(offset int64, buf []byte) error
}

// Identity is a no-op Cipher used by tests and by columns/files that
// declare no encryption.
type Identity struct{}

func (Identity) BlockSize() int { return 1 }

func (Identity) Encrypt(int64, []byte) error { return nil }

func (Identity) Decrypt(int64, []byte) error { return nil }
