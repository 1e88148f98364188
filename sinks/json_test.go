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
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/gomerge"
	"github.com/aaronlmathis/gomerge/codec"
	"github.com/aaronlmathis/gomerge/objects"
)

// Mock writer for testing
type mockWriteCloser struct {
	*strings.Builder
	closed    bool
	failWrite bool
	mu        sync.Mutex
}

func (m *mockWriteCloser) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return 0, io.ErrUnexpectedEOF
	}
	return m.Builder.Write(p)
}

func (m *mockWriteCloser) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockWriteCloser) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Builder.String()
}

func (m *mockWriteCloser) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func newMockWriteCloser() *mockWriteCloser {
	return &mockWriteCloser{
		Builder: &strings.Builder{},
	}
}

func testCodec() gomerge.Codec {
	return codec.NewJSON(gomerge.KindSingleton, func() any { return &objects.Summary{} })
}

func testRef() gomerge.OutputRef {
	return gomerge.OutputRef{Topic: "test/summary", Sub: 3, RunID: "run-1"}
}

func testObject() gomerge.Object {
	s := &objects.Summary{}
	s.Observe(1)
	s.Observe(5)
	return gomerge.Singleton(s)
}

// TestJSONSink_BasicFunctionality tests core publish operations
func TestJSONSink_BasicFunctionality(t *testing.T) {
	mock := newMockWriteCloser()
	sink := NewJSONSink(mock, testCodec())

	ctx := context.Background()
	require.NoError(t, sink.Publish(ctx, testRef(), testObject()))
	require.NoError(t, sink.Close())

	output := mock.String()
	assert.Contains(t, output, `"run_id":"run-1"`)
	assert.Contains(t, output, `"topic":"test/summary"`)
	assert.Contains(t, output, `"sub":3`)
	assert.Contains(t, output, `"kind":"singleton"`)
	assert.Contains(t, output, "\n")
	assert.True(t, mock.IsClosed())

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(output)), &rec))
	var s objects.Summary
	require.NoError(t, json.Unmarshal(rec.Payload, &s))
	assert.Equal(t, int64(2), s.Count)
	assert.Equal(t, float64(6), s.Sum)
}

// TestJSONSink_Batching tests buffered writes without flush-on-write
func TestJSONSink_Batching(t *testing.T) {
	mock := newMockWriteCloser()
	// A batch size on its own must buffer; it overrides the flush-on-write
	// default.
	sink := NewJSONSink(mock, testCodec(), WithJSONBatchSize(3))

	ctx := context.Background()
	require.NoError(t, sink.Publish(ctx, testRef(), testObject()))
	require.NoError(t, sink.Publish(ctx, testRef(), testObject()))
	assert.Empty(t, mock.String(), "records should stay buffered until the batch fills")

	require.NoError(t, sink.Publish(ctx, testRef(), testObject()))
	assert.Equal(t, 3, strings.Count(mock.String(), "\n"))

	stats := sink.Stats()
	assert.Equal(t, int64(3), stats.Published)
	assert.Equal(t, int64(1), stats.FlushCount)
}

// TestJSONSink_FlushEmpty tests that flushing an empty buffer is a no-op
func TestJSONSink_FlushEmpty(t *testing.T) {
	sink := NewJSONSink(newMockWriteCloser(), testCodec())
	require.NoError(t, sink.Flush())
	assert.Equal(t, int64(0), sink.Stats().FlushCount)
}

// TestJSONSink_WriteFailure tests error propagation from the writer
func TestJSONSink_WriteFailure(t *testing.T) {
	mock := newMockWriteCloser()
	mock.failWrite = true
	sink := NewJSONSink(mock, testCodec())

	err := sink.Publish(context.Background(), testRef(), testObject())
	require.Error(t, err)
	var sinkErr *JSONSinkError
	assert.ErrorAs(t, err, &sinkErr)
}

// TestJSONSink_PublishAfterClose tests the closed-sink guard
func TestJSONSink_PublishAfterClose(t *testing.T) {
	sink := NewJSONSink(newMockWriteCloser(), testCodec())
	require.NoError(t, sink.Close())

	err := sink.Publish(context.Background(), testRef(), testObject())
	assert.Error(t, err)
}

// TestJSONSink_CloseTwice tests idempotent close
func TestJSONSink_CloseTwice(t *testing.T) {
	sink := NewJSONSink(newMockWriteCloser(), testCodec())
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())
}
