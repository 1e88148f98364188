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

package merger

import (
	"errors"
	"fmt"

	"github.com/aaronlmathis/gomerge"
)

// mergeCache combines the template with every cached snapshot and returns the
// populated accumulator, or the empty object when nothing has arrived since
// the last reset.
//
// The template bytes are decoded fresh on every call; the decoded value is
// the in-place accumulator. Cache iteration order is not deterministic, so
// combinators must be commutative. All payloads must share one kind; a
// mismatch aborts the cycle's merge. The merged-object count is committed
// only when the whole merge succeeds, so an aborted merge leaves the
// publication metrics untouched.
func (m *Merger) mergeCache() (gomerge.Object, error) {
	if m.store.isEmpty() {
		return gomerge.Empty(), nil
	}

	m.logger.Debug("merging objects", "count", m.store.size(), "output", m.output.String())

	var merged int64
	acc, err := m.store.codec.Decode(m.store.template)
	if err != nil {
		return gomerge.Empty(), &gomerge.DecodeError{Origin: m.store.templateID, Err: err}
	}
	if acc.IsEmpty() {
		return gomerge.Empty(), &gomerge.InvariantError{
			Op:  "merge",
			Err: errors.New("codec returned an empty object for the template"),
		}
	}

	switch acc.Kind() {
	case gomerge.KindSingleton:
		if m.combiner == nil {
			return gomerge.Empty(), &gomerge.InvariantError{Op: "merge", Err: errNoCombiner}
		}
		merged++
		for id, entry := range m.store.cache {
			if entry.Kind() != gomerge.KindSingleton {
				return gomerge.Empty(), &gomerge.KindMismatchError{Origin: id, Want: acc.Kind(), Got: entry.Kind()}
			}
			if err := m.combiner(acc.Value(), entry.Value()); err != nil {
				return gomerge.Empty(), fmt.Errorf("combine %s: %w", id, err)
			}
			merged++
		}

	case gomerge.KindMergeable:
		target, ok := acc.AsMergeable()
		if !ok {
			return gomerge.Empty(), &gomerge.InvariantError{Op: "merge", Err: errors.New("mergeable object does not implement Mergeable")}
		}
		merged++
		for id, entry := range m.store.cache {
			other, ok := entry.AsMergeable()
			if !ok {
				return gomerge.Empty(), &gomerge.KindMismatchError{Origin: id, Want: acc.Kind(), Got: entry.Kind()}
			}
			if err := target.MergeWith(other); err != nil {
				return gomerge.Empty(), fmt.Errorf("merge %s: %w", id, err)
			}
			merged++
		}

	case gomerge.KindCollection:
		if m.combiner == nil {
			return gomerge.Empty(), &gomerge.InvariantError{Op: "merge", Err: errNoCombiner}
		}
		target, _ := acc.Items()
		merged += int64(len(target))
		for id, entry := range m.store.cache {
			others, ok := entry.Items()
			if !ok {
				return gomerge.Empty(), &gomerge.KindMismatchError{Origin: id, Want: acc.Kind(), Got: entry.Kind()}
			}
			if len(others) != len(target) {
				return gomerge.Empty(), &gomerge.KindMismatchError{
					Origin: id,
					Want:   acc.Kind(),
					Got:    entry.Kind(),
					Detail: fmt.Sprintf("collection length %d != %d", len(others), len(target)),
				}
			}
			for i := range target {
				if err := m.combiner(target[i], others[i]); err != nil {
					return gomerge.Empty(), fmt.Errorf("combine %s[%d]: %w", id, i, err)
				}
			}
			merged += int64(len(target))
		}

	default:
		return gomerge.Empty(), &gomerge.InvariantError{
			Op:  "merge",
			Err: fmt.Errorf("unexpected payload kind %s", acc.Kind()),
		}
	}

	m.objectsMerged = merged
	return acc, nil
}

var errNoCombiner = errors.New("no combiner configured for singleton payloads")
