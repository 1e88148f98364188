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

package sinks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/gomerge"
)

func newTestBadgerSink(t *testing.T) *BadgerSink {
	t.Helper()
	sink, err := NewBadgerSink("", testCodec(), WithBadgerInMemory(true))
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })
	return sink
}

// TestBadgerSink_PublishAndHistory tests archiving and ordered retrieval
func TestBadgerSink_PublishAndHistory(t *testing.T) {
	sink := newTestBadgerSink(t)
	ctx := context.Background()
	ref := testRef()

	for i := 0; i < 3; i++ {
		require.NoError(t, sink.Publish(ctx, ref, testObject()))
	}

	records, err := sink.History(ref)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, ref.RunID, rec.RunID)
		assert.Equal(t, ref.Topic, rec.Topic)
		assert.Equal(t, "singleton", rec.Kind)
	}

	stats := sink.Stats()
	assert.Equal(t, int64(3), stats.Published)
	assert.Greater(t, stats.BytesWritten, int64(0))
}

// TestBadgerSink_HistoryIsolatesRefs tests that archives do not bleed across
// output references
func TestBadgerSink_HistoryIsolatesRefs(t *testing.T) {
	sink := newTestBadgerSink(t)
	ctx := context.Background()

	refA := gomerge.OutputRef{Topic: "a", Sub: 0, RunID: "run-1"}
	refB := gomerge.OutputRef{Topic: "b", Sub: 0, RunID: "run-1"}
	require.NoError(t, sink.Publish(ctx, refA, testObject()))
	require.NoError(t, sink.Publish(ctx, refA, testObject()))
	require.NoError(t, sink.Publish(ctx, refB, testObject()))

	records, err := sink.History(refA)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = sink.History(refB)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

// TestBadgerSink_ReopenContinuesSequence tests that a persistent archive
// keeps appending after close and reopen instead of overwriting earlier
// publications
func TestBadgerSink_ReopenContinuesSequence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	ref := testRef()

	sink, err := NewBadgerSink(dir, testCodec())
	require.NoError(t, err)
	require.NoError(t, sink.Publish(ctx, ref, testObject()))
	require.NoError(t, sink.Publish(ctx, ref, testObject()))
	require.NoError(t, sink.Close())

	sink, err = NewBadgerSink(dir, testCodec())
	require.NoError(t, err)
	defer sink.Close()
	require.NoError(t, sink.Publish(ctx, ref, testObject()))

	records, err := sink.History(ref)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

// TestBadgerSink_Closed tests the closed-sink guards
func TestBadgerSink_Closed(t *testing.T) {
	sink := newTestBadgerSink(t)
	require.NoError(t, sink.Close())

	assert.Error(t, sink.Publish(context.Background(), testRef(), testObject()))
	_, err := sink.History(testRef())
	assert.Error(t, err)
	assert.NoError(t, sink.Close())
}

// TestBadgerSink_RequiresDir tests directory validation for persistent mode
func TestBadgerSink_RequiresDir(t *testing.T) {
	_, err := NewBadgerSink("", testCodec())
	assert.Error(t, err)
}
