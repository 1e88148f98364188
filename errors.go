//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2026 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of GoMerge.
//
// GoMerge is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GoMerge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GoMerge. If not, see https://www.gnu.org/licenses/.

package gomerge

import "fmt"

// DecodeError degrades gracefully: the merge instance keeps operating on
// subsequent valid updates. KindMismatchError and InvariantError are hard
// failures; continuing past them would silently produce wrong merged data.

// DecodeError reports an ingress payload that could not be deserialized into
// the expected kind. It is surfaced to the caller of the update path; the
// instance continues operating on subsequent valid updates.
type DecodeError struct {
	Origin string // Origin key of the offending update
	Err    error  // Underlying codec error
}

// Error returns the error string for DecodeError.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode payload from %s: %v", e.Origin, e.Err)
}

// Unwrap returns the underlying error for DecodeError.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// KindMismatchError reports a payload whose kind (or collection length)
// disagrees with the merge accumulator. It indicates a misconfigured set of
// origins feeding one merge instance, not a transient fault: the cycle's
// merge is aborted.
type KindMismatchError struct {
	Origin string // Origin key of the offending cache entry
	Want   Kind   // Kind of the accumulator
	Got    Kind   // Kind of the offending entry
	Detail string // Optional, e.g. collection length mismatch
}

// Error returns the error string for KindMismatchError.
func (e *KindMismatchError) Error() string {
	msg := fmt.Sprintf("kind mismatch for %s: want %s, got %s", e.Origin, e.Want, e.Got)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// InvariantError reports a state that a single-threaded merge instance should
// never reach, such as a merged result vanishing between merge and publish.
// It is a programming bug and must fail loudly.
type InvariantError struct {
	Op  string // The operation being performed (e.g., "merge", "publish")
	Err error  // The underlying error
}

// Error returns the error string for InvariantError.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation in %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for InvariantError.
func (e *InvariantError) Unwrap() error {
	return e.Err
}
