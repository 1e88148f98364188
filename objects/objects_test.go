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

package objects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistogram_Fill(t *testing.T) {
	h := NewHistogram("latency", 10, 0, 100)

	h.Fill(5)   // bin 0
	h.Fill(55)  // bin 5
	h.Fill(-1)  // underflow
	h.Fill(100) // overflow, max is exclusive

	assert.Equal(t, int64(4), h.Entries)
	assert.Equal(t, float64(1), h.Bins[0])
	assert.Equal(t, float64(1), h.Bins[5])
	assert.Equal(t, float64(1), h.Underflow)
	assert.Equal(t, float64(1), h.Overflow)
}

func TestHistogram_FillBoundaries(t *testing.T) {
	// Values just below Max can divide to an index equal to len(Bins)
	// through float rounding. They belong in the last bin.
	h := NewHistogram("latency", 3, 0, 0.1)
	h.Fill(math.Nextafter(0.1, 0))

	assert.Equal(t, int64(1), h.Entries)
	assert.Equal(t, float64(1), h.Bins[2])
	assert.Equal(t, float64(0), h.Overflow)

	// A histogram without bins still counts out-of-binning fills.
	empty := NewHistogram("empty", 0, 0, 100)
	empty.Fill(50)
	empty.Fill(-1)

	assert.Equal(t, int64(2), empty.Entries)
	assert.Equal(t, float64(1), empty.Overflow)
	assert.Equal(t, float64(1), empty.Underflow)
}

func TestCombineHistograms(t *testing.T) {
	a := NewHistogram("latency", 4, 0, 40)
	b := NewHistogram("latency", 4, 0, 40)
	a.Fill(5)
	a.Fill(15)
	b.Fill(15)
	b.Fill(35)

	require.NoError(t, CombineHistograms(a, b))

	assert.Equal(t, int64(4), a.Entries)
	assert.Equal(t, []float64{1, 2, 0, 1}, a.Bins)
	// The source is untouched.
	assert.Equal(t, int64(2), b.Entries)
}

func TestCombineHistograms_Incompatible(t *testing.T) {
	t.Run("wrong type", func(t *testing.T) {
		assert.Error(t, CombineHistograms(NewHistogram("x", 4, 0, 1), 42))
		assert.Error(t, CombineHistograms(42, NewHistogram("x", 4, 0, 1)))
	})

	t.Run("different name", func(t *testing.T) {
		err := CombineHistograms(NewHistogram("a", 4, 0, 1), NewHistogram("b", 4, 0, 1))
		assert.Error(t, err)
	})

	t.Run("different binning", func(t *testing.T) {
		err := CombineHistograms(NewHistogram("a", 4, 0, 1), NewHistogram("a", 8, 0, 1))
		assert.Error(t, err)
	})
}

func TestSummary_Observe(t *testing.T) {
	s := &Summary{}
	s.Observe(4)
	s.Observe(-2)
	s.Observe(10)

	assert.Equal(t, int64(3), s.Count)
	assert.Equal(t, float64(12), s.Sum)
	assert.Equal(t, float64(-2), s.Min)
	assert.Equal(t, float64(10), s.Max)
	assert.Equal(t, float64(4), s.Mean())
}

func TestSummary_MergeWith(t *testing.T) {
	a := &Summary{}
	a.Observe(1)
	a.Observe(3)
	b := &Summary{}
	b.Observe(-5)
	b.Observe(9)

	require.NoError(t, a.MergeWith(b))
	assert.Equal(t, int64(4), a.Count)
	assert.Equal(t, float64(8), a.Sum)
	assert.Equal(t, float64(-5), a.Min)
	assert.Equal(t, float64(9), a.Max)
	assert.Equal(t, float64(2), a.Mean())
}

func TestSummary_MergeWithEmpty(t *testing.T) {
	a := &Summary{}
	a.Observe(7)

	require.NoError(t, a.MergeWith(&Summary{}))
	assert.Equal(t, int64(1), a.Count)
	assert.Equal(t, float64(7), a.Min)

	empty := &Summary{}
	require.NoError(t, empty.MergeWith(a))
	assert.Equal(t, int64(1), empty.Count)
	assert.Equal(t, float64(7), empty.Min)
	assert.Equal(t, float64(7), empty.Max)
}

func TestSummary_Mean_Empty(t *testing.T) {
	assert.Equal(t, float64(0), (&Summary{}).Mean())
}
