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
	"github.com/aaronlmathis/gomerge"
)

// snapshotStore owns, per merge instance, the template payload and a mapping
// from origin key to a deserialized snapshot for every other origin.
//
// The template is the snapshot of whichever origin was first observed since
// the last reset. It is kept in raw serialized form so it can be used as the
// base of a merge multiple times without requiring a clone capability on
// arbitrary payload types: the engine decodes it fresh on every merge.
type snapshotStore struct {
	codec      gomerge.Codec
	templateID string
	template   []byte
	cache      map[string]gomerge.Object
}

func newSnapshotStore(codec gomerge.Codec) *snapshotStore {
	return &snapshotStore{
		codec: codec,
		cache: make(map[string]gomerge.Object),
	}
}

// upsert stores one tagged update. The first origin seen since the last reset
// (and every repeat update from it) lands in the template slot without being
// decoded; every other origin is decoded and overwrites its cache entry.
// Last write wins within a cycle; repeat updates do not accumulate.
func (s *snapshotStore) upsert(originID string, payload []byte) error {
	if s.templateID == "" || s.templateID == originID {
		s.templateID = originID
		s.template = append([]byte(nil), payload...)
		return nil
	}

	obj, err := s.codec.Decode(payload)
	if err != nil {
		return &gomerge.DecodeError{Origin: originID, Err: err}
	}
	s.cache[originID] = obj
	return nil
}

// isEmpty reports whether no template has been set since the last reset.
func (s *snapshotStore) isEmpty() bool {
	return s.templateID == ""
}

// size returns the number of origins currently held, template included.
func (s *snapshotStore) size() int {
	if s.isEmpty() {
		return 0
	}
	return len(s.cache) + 1
}

// reset releases the template bytes and empties the cache.
func (s *snapshotStore) reset() {
	s.templateID = ""
	s.template = nil
	s.cache = make(map[string]gomerge.Object)
}
