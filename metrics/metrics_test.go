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

package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/gomerge"
	"github.com/aaronlmathis/gomerge/merger"
)

func TestMemory_Collects(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	require.NoError(t, c.Send(ctx, gomerge.Metric{Name: "a", Value: 1}))
	require.NoError(t, c.Send(ctx, gomerge.Metric{Name: "b", Value: 2}))
	require.NoError(t, c.Send(ctx, gomerge.Metric{Name: "a", Value: 3}))

	assert.Len(t, c.All(), 3)

	last, ok := c.Last("a")
	require.True(t, ok)
	assert.Equal(t, float64(3), last.Value)

	_, ok = c.Last("missing")
	assert.False(t, ok)

	c.Reset()
	assert.Empty(t, c.All())
}

func TestPrometheus_Send(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg, prometheus.Labels{"output": "test/counters"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Send(ctx, gomerge.Metric{Name: merger.MetricObjectsMerged, Value: 5}))
	require.NoError(t, p.Send(ctx, gomerge.Metric{Name: merger.MetricTotalObjectsMerged, Value: 12, Mode: gomerge.ModeRate}))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestPrometheus_UnknownMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg, nil)
	require.NoError(t, err)

	err = p.Send(context.Background(), gomerge.Metric{Name: "bogus", Value: 1})
	assert.Error(t, err)
}

func TestPrometheus_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(reg, nil)
	require.NoError(t, err)

	_, err = NewPrometheus(reg, nil)
	assert.Error(t, err)
}
