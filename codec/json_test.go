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

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/gomerge"
	"github.com/aaronlmathis/gomerge/objects"
)

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func TestJSON_DecodeSingleton(t *testing.T) {
	c := NewJSON(gomerge.KindSingleton, func() any { return &point{} })

	obj, err := c.Decode([]byte(`{"x":1,"y":2}`))
	require.NoError(t, err)
	assert.Equal(t, gomerge.KindSingleton, obj.Kind())

	p, ok := obj.Value().(*point)
	require.True(t, ok)
	assert.Equal(t, 1, p.X)
	assert.Equal(t, 2, p.Y)
}

func TestJSON_DecodeMergeable(t *testing.T) {
	c := NewJSON(gomerge.KindMergeable, func() any { return &objects.Summary{} })

	obj, err := c.Decode([]byte(`{"count":2,"sum":5,"min":1,"max":4}`))
	require.NoError(t, err)
	assert.Equal(t, gomerge.KindMergeable, obj.Kind())

	m, ok := obj.AsMergeable()
	require.True(t, ok)
	assert.Equal(t, int64(2), m.(*objects.Summary).Count)
}

func TestJSON_DecodeMergeable_FactoryMismatch(t *testing.T) {
	// The factory product must implement Mergeable.
	c := NewJSON(gomerge.KindMergeable, func() any { return &point{} })

	_, err := c.Decode([]byte(`{}`))
	require.Error(t, err)
	var jsonErr *JSONError
	assert.ErrorAs(t, err, &jsonErr)
	assert.Equal(t, "decode", jsonErr.Op)
}

func TestJSON_DecodeCollection(t *testing.T) {
	c := NewJSON(gomerge.KindCollection, func() any { return &point{} })

	obj, err := c.Decode([]byte(`[{"x":1},{"x":2},{"x":3}]`))
	require.NoError(t, err)
	assert.Equal(t, gomerge.KindCollection, obj.Kind())

	items, ok := obj.Items()
	require.True(t, ok)
	require.Len(t, items, 3)
	assert.Equal(t, 2, items[1].(*point).X)
}

func TestJSON_DecodeCollection_BadElement(t *testing.T) {
	c := NewJSON(gomerge.KindCollection, func() any { return &point{} })

	_, err := c.Decode([]byte(`[{"x":1},"nope"]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 1")
}

func TestJSON_DecodeInvalid(t *testing.T) {
	c := NewJSON(gomerge.KindSingleton, func() any { return &point{} })

	_, err := c.Decode([]byte(`{broken`))
	require.Error(t, err)
	var jsonErr *JSONError
	assert.ErrorAs(t, err, &jsonErr)
}

func TestJSON_Encode(t *testing.T) {
	c := NewJSON(gomerge.KindSingleton, func() any { return &point{} })

	data, err := c.Encode(gomerge.Singleton(&point{X: 3, Y: 4}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":3,"y":4}`, string(data))
}

func TestJSON_EncodeCollection(t *testing.T) {
	c := NewJSON(gomerge.KindCollection, func() any { return &point{} })

	data, err := c.Encode(gomerge.Collection([]any{&point{X: 1}, &point{X: 2}}))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"x":1,"y":0},{"x":2,"y":0}]`, string(data))
}

func TestJSON_EncodeEmpty(t *testing.T) {
	c := NewJSON(gomerge.KindSingleton, func() any { return &point{} })

	_, err := c.Encode(gomerge.Empty())
	assert.Error(t, err)
}

func TestJSON_Roundtrip(t *testing.T) {
	c := NewJSON(gomerge.KindSingleton, func() any { return &objects.Histogram{} })

	h := objects.NewHistogram("latency", 4, 0, 40)
	h.Fill(15)

	data, err := c.Encode(gomerge.Singleton(h))
	require.NoError(t, err)

	obj, err := c.Decode(data)
	require.NoError(t, err)
	decoded := obj.Value().(*objects.Histogram)
	assert.Equal(t, h.Name, decoded.Name)
	assert.Equal(t, h.Bins, decoded.Bins)
	assert.Equal(t, h.Entries, decoded.Entries)
}
