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

// Package glinterr defines the error taxonomy shared by every Glint
// package. Kinds are sentinel errors so callers can classify a failure
// with errors.Is without depending on a concrete type.
package glinterr

import (
	"errors"
	"fmt"
)

var (
	// ErrIO covers directory I/O failures, checksum mismatches, and short
	// reads/writes. Surfaced to the caller; in the write path it triggers
	// a rollback of the current document.
	ErrIO = errors.New("glint: io error")

	// ErrIndex covers structural violations: bad magic, unknown format
	// version, duplicate field id, invalid column header. Fatal for the
	// operation that hit it.
	ErrIndex = errors.New("glint: index error")

	// ErrEncryption covers cipher mismatch or a missing cipher for an
	// encrypted column/file. Reported as ErrIndex to callers that only
	// check the broad kind.
	ErrEncryption = fmt.Errorf("glint: encryption error: %w", ErrIndex)

	// ErrLockObtainFailed is returned from Open when another writer
	// already holds the directory's write lock.
	ErrLockObtainFailed = errors.New("glint: lock obtain failed")

	// ErrIllegalArgument covers API misuse detectable from argument
	// values alone.
	ErrIllegalArgument = errors.New("glint: illegal argument")

	// ErrIllegalState covers API misuse detectable only from the
	// receiver's current state (e.g. calling Seek after EOF in a
	// random-only iterator).
	ErrIllegalState = errors.New("glint: illegal state")

	// ErrNotSupported is returned when an iterator option the concrete
	// implementation does not implement is requested (e.g. Next on a
	// random-only term iterator).
	ErrNotSupported = errors.New("glint: not supported")

	// ErrOutOfRange is returned when addressing a sub-reader or column
	// index beyond what is present.
	ErrOutOfRange = errors.New("glint: out of range")
)

// Wrap annotates err with a message while preserving errors.Is against
// the given sentinel kind.
func Wrap(kind error, msg string, cause error) error {
	if cause == nil {
		return &wrapped{kind: kind, msg: msg}
	}
	return &wrapped{kind: kind, msg: msg + ": " + cause.Error(), cause: cause}
}

type wrapped struct {
	kind  error
	msg   string
	cause error
}

func (w *wrapped) Error() string { return w.msg }

func (w *wrapped) Unwrap() error { return w.kind }

func (w *wrapped) Cause() error { return w.cause }
