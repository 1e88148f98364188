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

// Package objects provides ready-made payload types for the GoMerge engine:
// a fixed-binning histogram merged via the external CombineHistograms
// function, and a Summary implementing gomerge.Mergeable.
package objects

import (
	"fmt"
)

// Histogram is a fixed-binning numeric histogram. It is a singleton payload:
// two histograms with identical binning are combined by per-bin addition.
type Histogram struct {
	Name      string    `json:"name"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Bins      []float64 `json:"bins"`
	Underflow float64   `json:"underflow"`
	Overflow  float64   `json:"overflow"`
	Entries   int64     `json:"entries"`
}

// NewHistogram creates a histogram with the given number of equal-width bins
// over [min, max).
func NewHistogram(name string, bins int, min, max float64) *Histogram {
	return &Histogram{
		Name: name,
		Min:  min,
		Max:  max,
		Bins: make([]float64, bins),
	}
}

// Fill records one observation.
func (h *Histogram) Fill(v float64) {
	h.Entries++
	switch {
	case v < h.Min:
		h.Underflow++
	case v >= h.Max || len(h.Bins) == 0:
		h.Overflow++
	default:
		width := (h.Max - h.Min) / float64(len(h.Bins))
		// Rounding near Max can push the quotient to len(h.Bins).
		idx := int((v - h.Min) / width)
		if idx >= len(h.Bins) {
			idx = len(h.Bins) - 1
		}
		h.Bins[idx]++
	}
}

// compatible reports whether two histograms share binning and can be added.
func (h *Histogram) compatible(other *Histogram) error {
	if h.Name != other.Name {
		return fmt.Errorf("histogram name %q != %q", other.Name, h.Name)
	}
	if len(h.Bins) != len(other.Bins) || h.Min != other.Min || h.Max != other.Max {
		return fmt.Errorf("histogram %q binning [%v,%v)x%d != [%v,%v)x%d",
			h.Name, other.Min, other.Max, len(other.Bins), h.Min, h.Max, len(h.Bins))
	}
	return nil
}

// CombineHistograms is a gomerge.Combiner adding src into dst per bin.
// Both arguments must be *Histogram with identical binning.
func CombineHistograms(dst, src any) error {
	target, ok := dst.(*Histogram)
	if !ok {
		return fmt.Errorf("combine histograms: dst is %T, not *Histogram", dst)
	}
	other, ok := src.(*Histogram)
	if !ok {
		return fmt.Errorf("combine histograms: src is %T, not *Histogram", src)
	}
	if err := target.compatible(other); err != nil {
		return fmt.Errorf("combine histograms: %w", err)
	}

	for i := range target.Bins {
		target.Bins[i] += other.Bins[i]
	}
	target.Underflow += other.Underflow
	target.Overflow += other.Overflow
	target.Entries += other.Entries
	return nil
}
