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
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/aaronlmathis/gomerge"
)

// PostgresSinkError wraps PostgreSQL sink errors with context about the
// operation.
type PostgresSinkError struct {
	Op  string // The operation being performed (e.g., "publish", "connect")
	Err error  // The underlying error
}

// Error returns the error string for PostgresSinkError.
func (e *PostgresSinkError) Error() string {
	return fmt.Sprintf("postgres sink %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for PostgresSinkError.
func (e *PostgresSinkError) Unwrap() error {
	return e.Err
}

// PostgresSinkStats holds PostgreSQL sink performance statistics.
type PostgresSinkStats struct {
	Published        int64         // Total publications written
	BatchesWritten   int64         // Number of batches written
	TransactionCount int64         // Number of transactions committed
	LastWriteTime    time.Time     // Time of last write
	WriteDuration    time.Duration // Total time spent writing
}

// PostgresSinkOptions configures the PostgreSQL sink.
type PostgresSinkOptions struct {
	DSN             string        // PostgreSQL connection string
	TableName       string        // Target table name
	BatchSize       int           // Number of publications per batch
	CreateTable     bool          // Create table if not exists
	QueryTimeout    time.Duration // Timeout for queries
	ConnMaxLifetime time.Duration // Max connection lifetime
	MaxOpenConns    int           // Max open connections
	MaxIdleConns    int           // Max idle connections
}

// PostgresSinkOption represents a configuration function for
// PostgresSinkOptions.
type PostgresSinkOption func(*PostgresSinkOptions)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) PostgresSinkOption {
	return func(opts *PostgresSinkOptions) {
		opts.DSN = dsn
	}
}

// WithPostgresTable sets the target table name.
func WithPostgresTable(table string) PostgresSinkOption {
	return func(opts *PostgresSinkOptions) {
		opts.TableName = table
	}
}

// WithPostgresBatchSize sets the number of publications buffered per batch.
func WithPostgresBatchSize(size int) PostgresSinkOption {
	return func(opts *PostgresSinkOptions) {
		opts.BatchSize = size
	}
}

// WithPostgresCreateTable creates the target table if it does not exist.
func WithPostgresCreateTable(create bool) PostgresSinkOption {
	return func(opts *PostgresSinkOptions) {
		opts.CreateTable = create
	}
}

// WithPostgresQueryTimeout sets the per-query timeout.
func WithPostgresQueryTimeout(timeout time.Duration) PostgresSinkOption {
	return func(opts *PostgresSinkOptions) {
		opts.QueryTimeout = timeout
	}
}

// PostgresSink implements gomerge.Sink for PostgreSQL, batching publication
// envelopes into transactional multi-row inserts. Thread-safe.
type PostgresSink struct {
	db     *sql.DB
	codec  gomerge.Codec
	opts   PostgresSinkOptions
	buffer []Record
	stats  PostgresSinkStats
	closed bool
	mu     sync.Mutex
}

const postgresSchema = `CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT NOT NULL,
	topic TEXT NOT NULL,
	sub BIGINT NOT NULL,
	kind TEXT NOT NULL,
	published_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL
)`

// NewPostgresSink creates a PostgreSQL sink. It connects eagerly and,
// when configured, creates the target table.
func NewPostgresSink(codec gomerge.Codec, options ...PostgresSinkOption) (*PostgresSink, error) {
	opts := PostgresSinkOptions{
		TableName:    "gomerge_publications",
		BatchSize:    1,
		QueryTimeout: 30 * time.Second,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.DSN == "" {
		return nil, &PostgresSinkError{Op: "configure", Err: fmt.Errorf("DSN is required")}
	}

	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, &PostgresSinkError{Op: "connect", Err: err}
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.QueryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &PostgresSinkError{Op: "ping", Err: err}
	}

	if opts.CreateTable {
		if _, err := db.ExecContext(ctx, fmt.Sprintf(postgresSchema, opts.TableName)); err != nil {
			db.Close()
			return nil, &PostgresSinkError{Op: "create_table", Err: err}
		}
	}

	return &PostgresSink{
		db:    db,
		codec: codec,
		opts:  opts,
	}, nil
}

// Publish implements the gomerge.Sink interface.
func (p *PostgresSink) Publish(ctx context.Context, ref gomerge.OutputRef, obj gomerge.Object) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return &PostgresSinkError{Op: "publish", Err: fmt.Errorf("sink is closed")}
	}

	rec, err := newRecord(p.codec, ref, obj)
	if err != nil {
		return &PostgresSinkError{Op: "encode", Err: err}
	}

	p.buffer = append(p.buffer, rec)
	p.stats.Published++

	if len(p.buffer) >= p.opts.BatchSize {
		return p.flushLocked(ctx)
	}
	return nil
}

// Flush implements the gomerge.Sink interface.
func (p *PostgresSink) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked(context.Background())
}

func (p *PostgresSink) flushLocked(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.opts.QueryTimeout)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return &PostgresSinkError{Op: "begin", Err: err}
	}

	placeholders := make([]string, 0, len(p.buffer))
	args := make([]any, 0, len(p.buffer)*6)
	for i, rec := range p.buffer {
		base := i * 6
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6))
		args = append(args, rec.RunID, rec.Topic, int64(rec.Sub), rec.Kind, rec.PublishedAt, []byte(rec.Payload))
	}
	query := fmt.Sprintf("INSERT INTO %s (run_id, topic, sub, kind, published_at, payload) VALUES %s",
		p.opts.TableName, strings.Join(placeholders, ", "))

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()
		return &PostgresSinkError{Op: "insert", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &PostgresSinkError{Op: "commit", Err: err}
	}

	p.buffer = p.buffer[:0]
	p.stats.BatchesWritten++
	p.stats.TransactionCount++
	p.stats.WriteDuration += time.Since(start)
	p.stats.LastWriteTime = time.Now()
	return nil
}

// Close implements the gomerge.Sink interface.
func (p *PostgresSink) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	if err := p.flushLocked(context.Background()); err != nil {
		return err
	}
	p.closed = true
	return p.db.Close()
}

// Stats returns the current statistics of the PostgreSQL sink.
func (p *PostgresSink) Stats() PostgresSinkStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
