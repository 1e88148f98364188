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
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aaronlmathis/gomerge"
)

// JSONSinkError wraps JSON sink errors with context about the operation.
type JSONSinkError struct {
	Op  string
	Err error
}

func (e *JSONSinkError) Error() string {
	return fmt.Sprintf("json sink %s: %v", e.Op, e.Err)
}

func (e *JSONSinkError) Unwrap() error {
	return e.Err
}

// JSONSinkStats holds JSON sink performance statistics.
type JSONSinkStats struct {
	Published     int64
	FlushCount    int64
	FlushDuration time.Duration
	LastFlushTime time.Time
}

// JSONSinkOptions configures JSON lines output.
type JSONSinkOptions struct {
	BatchSize    int
	FlushOnWrite bool
}

// SinkOptionJSON is a functional option.
type SinkOptionJSON func(*JSONSinkOptions)

// WithJSONBatchSize sets the number of publications buffered before a flush.
// A batch size above one switches the sink to batched mode, overriding the
// default flush-on-write behavior.
func WithJSONBatchSize(size int) SinkOptionJSON {
	return func(opts *JSONSinkOptions) {
		opts.BatchSize = size
		if size > 1 {
			opts.FlushOnWrite = false
		}
	}
}

// WithFlushOnWrite forces a flush after every publication.
func WithFlushOnWrite(flush bool) SinkOptionJSON {
	return func(opts *JSONSinkOptions) {
		opts.FlushOnWrite = flush
	}
}

// JSONSink implements gomerge.Sink for line-delimited JSON output.
// Thread-safe.
type JSONSink struct {
	writer  io.Writer
	closer  io.Closer
	codec   gomerge.Codec
	options JSONSinkOptions
	buffer  []Record
	stats   JSONSinkStats
	closed  bool
	mu      sync.Mutex
}

// NewJSONSink creates a JSON lines sink writing publication envelopes to w.
func NewJSONSink(w io.WriteCloser, codec gomerge.Codec, opts ...SinkOptionJSON) *JSONSink {
	options := JSONSinkOptions{
		BatchSize:    0,
		FlushOnWrite: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &JSONSink{
		writer:  w,
		closer:  w,
		codec:   codec,
		options: options,
	}
}

// Publish implements the gomerge.Sink interface.
func (j *JSONSink) Publish(ctx context.Context, ref gomerge.OutputRef, obj gomerge.Object) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return &JSONSinkError{Op: "publish", Err: fmt.Errorf("sink is closed")}
	}

	rec, err := newRecord(j.codec, ref, obj)
	if err != nil {
		return &JSONSinkError{Op: "encode", Err: err}
	}

	j.buffer = append(j.buffer, rec)
	j.stats.Published++

	if j.options.FlushOnWrite || len(j.buffer) >= j.options.BatchSize {
		return j.flushLocked()
	}
	return nil
}

// Flush implements the gomerge.Sink interface.
func (j *JSONSink) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flushLocked()
}

func (j *JSONSink) flushLocked() error {
	if len(j.buffer) == 0 {
		return nil
	}
	start := time.Now()

	for _, rec := range j.buffer {
		data, err := json.Marshal(rec)
		if err != nil {
			return &JSONSinkError{Op: "marshal", Err: err}
		}
		if _, err := j.writer.Write(data); err != nil {
			return &JSONSinkError{Op: "write", Err: err}
		}
		if _, err := j.writer.Write([]byte("\n")); err != nil {
			return &JSONSinkError{Op: "write", Err: err}
		}
	}
	j.buffer = j.buffer[:0]

	j.stats.FlushCount++
	j.stats.FlushDuration += time.Since(start)
	j.stats.LastFlushTime = time.Now()

	if flusher, ok := j.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// Close implements the gomerge.Sink interface.
func (j *JSONSink) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	if err := j.flushLocked(); err != nil {
		return err
	}
	j.closed = true

	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}

// Stats returns the current statistics of the JSON sink.
func (j *JSONSink) Stats() JSONSinkStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}
