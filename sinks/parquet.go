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
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/gomerge"
)

// ParquetSinkError wraps Parquet sink errors with context about the
// operation.
type ParquetSinkError struct {
	Op  string // The operation that failed (e.g., "open_file", "write_batch")
	Err error  // The underlying error
}

// Error returns the error string for ParquetSinkError.
func (e *ParquetSinkError) Error() string {
	return fmt.Sprintf("parquet sink %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for ParquetSinkError.
func (e *ParquetSinkError) Unwrap() error {
	return e.Err
}

// ParquetSinkStats holds Parquet sink performance statistics.
type ParquetSinkStats struct {
	Published      int64
	BatchesWritten int64
	FlushDuration  time.Duration
	LastFlushTime  time.Time
}

// ParquetSinkOptions configures the Parquet sink.
type ParquetSinkOptions struct {
	BatchSize    int64                // Number of publications buffered per row group
	Compression  compress.Compression // Compression algorithm
	RowGroupSize int64                // Maximum row group length
}

// ParquetSinkOption represents a configuration function for
// ParquetSinkOptions.
type ParquetSinkOption func(*ParquetSinkOptions)

// WithParquetBatchSize sets the number of publications buffered before a
// batch is written.
func WithParquetBatchSize(size int64) ParquetSinkOption {
	return func(opts *ParquetSinkOptions) {
		opts.BatchSize = size
	}
}

// WithParquetCompression sets the Parquet compression algorithm.
func WithParquetCompression(compression compress.Compression) ParquetSinkOption {
	return func(opts *ParquetSinkOptions) {
		opts.Compression = compression
	}
}

// WithParquetRowGroupSize sets the maximum row group length.
func WithParquetRowGroupSize(size int64) ParquetSinkOption {
	return func(opts *ParquetSinkOptions) {
		opts.RowGroupSize = size
	}
}

// parquetSchema is the fixed publication envelope schema; no inference is
// needed since every row has the same shape.
var parquetSchema = arrow.NewSchema([]arrow.Field{
	{Name: "run_id", Type: arrow.BinaryTypes.String},
	{Name: "topic", Type: arrow.BinaryTypes.String},
	{Name: "sub", Type: arrow.PrimitiveTypes.Int64},
	{Name: "kind", Type: arrow.BinaryTypes.String},
	{Name: "published_at", Type: arrow.FixedWidthTypes.Timestamp_us},
	{Name: "payload", Type: arrow.BinaryTypes.String},
}, nil)

// ParquetSink implements gomerge.Sink, archiving publication envelopes as
// rows of a Parquet file. Thread-safe.
type ParquetSink struct {
	file      *os.File
	writer    *pqarrow.FileWriter
	codec     gomerge.Codec
	opts      ParquetSinkOptions
	allocator memory.Allocator
	buffer    []Record
	stats     ParquetSinkStats
	closed    bool
	mu        sync.Mutex
}

// NewParquetSink creates a Parquet sink writing to filename. Parent
// directories are created as needed.
func NewParquetSink(filename string, codec gomerge.Codec, options ...ParquetSinkOption) (*ParquetSink, error) {
	opts := ParquetSinkOptions{
		BatchSize:    64,
		Compression:  compress.Codecs.Snappy,
		RowGroupSize: 10000,
	}
	for _, option := range options {
		option(&opts)
	}

	dir := filepath.Dir(filename)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &ParquetSinkError{Op: "create_directory", Err: err}
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, &ParquetSinkError{Op: "open_file", Err: err}
	}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(opts.Compression),
		parquet.WithMaxRowGroupLength(opts.RowGroupSize),
	)
	writer, err := pqarrow.NewFileWriter(parquetSchema, file, props, pqarrow.DefaultWriterProps())
	if err != nil {
		file.Close()
		return nil, &ParquetSinkError{Op: "create_writer", Err: err}
	}

	return &ParquetSink{
		file:      file,
		writer:    writer,
		codec:     codec,
		opts:      opts,
		allocator: memory.NewGoAllocator(),
	}, nil
}

// Publish implements the gomerge.Sink interface.
func (p *ParquetSink) Publish(ctx context.Context, ref gomerge.OutputRef, obj gomerge.Object) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return &ParquetSinkError{Op: "publish", Err: fmt.Errorf("sink is closed")}
	}

	rec, err := newRecord(p.codec, ref, obj)
	if err != nil {
		return &ParquetSinkError{Op: "encode", Err: err}
	}

	p.buffer = append(p.buffer, rec)
	p.stats.Published++

	if int64(len(p.buffer)) >= p.opts.BatchSize {
		return p.flushLocked()
	}
	return nil
}

// Flush implements the gomerge.Sink interface.
func (p *ParquetSink) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked()
}

func (p *ParquetSink) flushLocked() error {
	if len(p.buffer) == 0 {
		return nil
	}
	start := time.Now()

	record, err := p.createArrowRecord(p.buffer)
	if err != nil {
		return err
	}
	defer record.Release()

	if err := p.writer.Write(record); err != nil {
		return &ParquetSinkError{Op: "write_batch", Err: err}
	}

	p.buffer = p.buffer[:0]
	p.stats.BatchesWritten++
	p.stats.FlushDuration += time.Since(start)
	p.stats.LastFlushTime = time.Now()
	return nil
}

// createArrowRecord converts buffered envelopes to one Arrow record.
func (p *ParquetSink) createArrowRecord(records []Record) (arrow.Record, error) {
	runID := array.NewStringBuilder(p.allocator)
	topic := array.NewStringBuilder(p.allocator)
	sub := array.NewInt64Builder(p.allocator)
	kind := array.NewStringBuilder(p.allocator)
	publishedAt := array.NewTimestampBuilder(p.allocator, arrow.FixedWidthTypes.Timestamp_us.(*arrow.TimestampType))
	payload := array.NewStringBuilder(p.allocator)
	builders := []array.Builder{runID, topic, sub, kind, publishedAt, payload}
	defer func() {
		for _, b := range builders {
			b.Release()
		}
	}()

	for _, rec := range records {
		runID.Append(rec.RunID)
		topic.Append(rec.Topic)
		sub.Append(int64(rec.Sub))
		kind.Append(rec.Kind)
		publishedAt.Append(arrow.Timestamp(rec.PublishedAt.UnixMicro()))
		payload.Append(string(rec.Payload))
	}

	arrays := make([]arrow.Array, len(builders))
	for i, b := range builders {
		arrays[i] = b.NewArray()
		defer arrays[i].Release()
	}
	return array.NewRecord(parquetSchema, arrays, int64(len(records))), nil
}

// Close implements the gomerge.Sink interface.
func (p *ParquetSink) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	if err := p.flushLocked(); err != nil {
		return err
	}
	p.closed = true

	if err := p.writer.Close(); err != nil {
		return &ParquetSinkError{Op: "close_writer", Err: err}
	}
	p.writer = nil
	p.file = nil
	return nil
}

// Stats returns the current statistics of the Parquet sink.
func (p *ParquetSink) Stats() ParquetSinkStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
