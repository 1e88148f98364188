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

// Package codec provides gomerge.Codec implementations.
//
// The JSON codec decodes opaque payload bytes into a configured payload kind
// using a factory for the concrete type. One codec serves one merge instance,
// so every decoded object carries the same kind.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/aaronlmathis/gomerge"
)

// JSONError wraps JSON codec errors with context about the operation.
type JSONError struct {
	Op  string // The operation being performed (e.g., "decode", "encode")
	Err error  // The underlying error
}

// Error returns the error string for JSONError.
func (e *JSONError) Error() string {
	return fmt.Sprintf("json codec %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for JSONError.
func (e *JSONError) Unwrap() error {
	return e.Err
}

// Factory produces a zero value of the concrete payload type, as a pointer,
// for the codec to decode into.
type Factory func() any

// JSON implements gomerge.Codec using encoding/json.
type JSON struct {
	kind    gomerge.Kind
	factory Factory
}

// NewJSON creates a JSON codec producing objects of the given kind. For
// KindCollection the factory produces one element, not the slice.
func NewJSON(kind gomerge.Kind, factory Factory) *JSON {
	return &JSON{kind: kind, factory: factory}
}

// Decode implements the gomerge.Codec interface.
func (j *JSON) Decode(data []byte) (gomerge.Object, error) {
	switch j.kind {
	case gomerge.KindSingleton:
		v := j.factory()
		if err := json.Unmarshal(data, v); err != nil {
			return gomerge.Empty(), &JSONError{Op: "decode", Err: err}
		}
		return gomerge.Singleton(v), nil

	case gomerge.KindMergeable:
		v := j.factory()
		m, ok := v.(gomerge.Mergeable)
		if !ok {
			return gomerge.Empty(), &JSONError{Op: "decode", Err: fmt.Errorf("factory produced %T, which does not implement Mergeable", v)}
		}
		if err := json.Unmarshal(data, v); err != nil {
			return gomerge.Empty(), &JSONError{Op: "decode", Err: err}
		}
		return gomerge.MergeableObject(m), nil

	case gomerge.KindCollection:
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return gomerge.Empty(), &JSONError{Op: "decode", Err: err}
		}
		items := make([]any, len(raws))
		for i, raw := range raws {
			v := j.factory()
			if err := json.Unmarshal(raw, v); err != nil {
				return gomerge.Empty(), &JSONError{Op: "decode", Err: fmt.Errorf("element %d: %w", i, err)}
			}
			items[i] = v
		}
		return gomerge.Collection(items), nil

	default:
		return gomerge.Empty(), &JSONError{Op: "decode", Err: fmt.Errorf("codec configured with unsupported kind %s", j.kind)}
	}
}

// Encode implements the gomerge.Codec interface.
func (j *JSON) Encode(obj gomerge.Object) ([]byte, error) {
	if obj.IsEmpty() {
		return nil, &JSONError{Op: "encode", Err: fmt.Errorf("cannot encode an empty object")}
	}
	data, err := json.Marshal(obj.Value())
	if err != nil {
		return nil, &JSONError{Op: "encode", Err: err}
	}
	return data, nil
}
