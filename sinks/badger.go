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
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/aaronlmathis/gomerge"
)

// BadgerSinkError provides structured error information for Badger sink
// operations.
type BadgerSinkError struct {
	Op  string // Operation that failed (e.g., "open_db", "write")
	Err error  // Underlying error
}

func (e *BadgerSinkError) Error() string {
	return fmt.Sprintf("badger sink %s: %v", e.Op, e.Err)
}

func (e *BadgerSinkError) Unwrap() error {
	return e.Err
}

// BadgerSinkStats holds statistics about the Badger sink's performance.
type BadgerSinkStats struct {
	Published     int64         // Total publications written
	BytesWritten  int64         // Total bytes written
	WriteDuration time.Duration // Total time spent writing
	LastWriteTime time.Time     // Time of last write
}

// BadgerSinkOptions configures the Badger sink behavior.
type BadgerSinkOptions struct {
	Dir        string       // Database directory
	SyncWrites bool         // Sync every write to disk
	InMemory   bool         // Keep the database entirely in memory
	Logger     *slog.Logger // Logger for Badger internals
}

// SinkOptionBadger represents a configuration function for BadgerSink.
type SinkOptionBadger func(*BadgerSinkOptions)

func WithBadgerSyncWrites(sync bool) SinkOptionBadger {
	return func(opts *BadgerSinkOptions) {
		opts.SyncWrites = sync
	}
}

func WithBadgerInMemory(inMemory bool) SinkOptionBadger {
	return func(opts *BadgerSinkOptions) {
		opts.InMemory = inMemory
	}
}

func WithBadgerLogger(logger *slog.Logger) SinkOptionBadger {
	return func(opts *BadgerSinkOptions) {
		opts.Logger = logger
	}
}

// BadgerSink implements gomerge.Sink, archiving publication envelopes in an
// embedded Badger database. Each publication is stored under
// "topic/sub/" followed by a big-endian sequence number, so the archive
// preserves publication order per output reference. Thread-safe.
type BadgerSink struct {
	db     *badger.DB
	codec  gomerge.Codec
	opts   BadgerSinkOptions
	seq    map[string]uint64
	stats  BadgerSinkStats
	closed bool
	mu     sync.Mutex
}

// NewBadgerSink opens (or creates) a Badger database at dir. Pass
// WithBadgerInMemory(true) and an empty dir for an ephemeral archive.
func NewBadgerSink(dir string, codec gomerge.Codec, options ...SinkOptionBadger) (*BadgerSink, error) {
	opts := BadgerSinkOptions{
		Dir:    dir,
		Logger: slog.Default(),
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.Dir == "" && !opts.InMemory {
		return nil, &BadgerSinkError{Op: "validate_options", Err: fmt.Errorf("dir is required")}
	}

	badgerOpts := badger.DefaultOptions(opts.Dir)
	badgerOpts.SyncWrites = opts.SyncWrites
	badgerOpts.InMemory = opts.InMemory
	badgerOpts.Logger = &badgerSlogAdapter{logger: opts.Logger}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, &BadgerSinkError{Op: "open_db", Err: err}
	}

	return &BadgerSink{
		db:    db,
		codec: codec,
		opts:  opts,
		seq:   make(map[string]uint64),
	}, nil
}

// Publish implements the gomerge.Sink interface.
func (b *BadgerSink) Publish(ctx context.Context, ref gomerge.OutputRef, obj gomerge.Object) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return &BadgerSinkError{Op: "publish", Err: fmt.Errorf("sink is closed")}
	}

	start := time.Now()
	defer func() {
		b.stats.WriteDuration += time.Since(start)
		b.stats.LastWriteTime = time.Now()
	}()

	rec, err := newRecord(b.codec, ref, obj)
	if err != nil {
		return &BadgerSinkError{Op: "encode", Err: err}
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return &BadgerSinkError{Op: "marshal", Err: err}
	}

	seq, err := b.nextSeq(ref)
	if err != nil {
		return &BadgerSinkError{Op: "seed_sequence", Err: err}
	}

	key := publicationKey(ref, seq)
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return &BadgerSinkError{Op: "write", Err: err}
	}

	b.seq[ref.String()]++
	b.stats.Published++
	b.stats.BytesWritten += int64(len(value))
	return nil
}

// History returns all archived publication envelopes for ref in publication
// order.
func (b *BadgerSink) History(ref gomerge.OutputRef) ([]Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, &BadgerSinkError{Op: "history", Err: fmt.Errorf("sink is closed")}
	}

	var records []Record
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(ref.String() + "/")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec Record
			if err := json.Unmarshal(value, &rec); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, &BadgerSinkError{Op: "history", Err: err}
	}
	return records, nil
}

// Flush implements the gomerge.Sink interface.
func (b *BadgerSink) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.opts.InMemory {
		return nil
	}
	if err := b.db.Sync(); err != nil {
		return &BadgerSinkError{Op: "sync", Err: err}
	}
	return nil
}

// Close implements the gomerge.Sink interface.
func (b *BadgerSink) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if err := b.db.Close(); err != nil {
		return &BadgerSinkError{Op: "close_db", Err: err}
	}
	return nil
}

// Stats returns the current statistics of the Badger sink.
func (b *BadgerSink) Stats() BadgerSinkStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// nextSeq returns the sequence number for ref's next publication. On the
// first publication for a ref after opening the database, the sequence is
// seeded past the highest archived key so a reopened archive keeps appending
// instead of overwriting earlier publications. Callers hold b.mu.
func (b *BadgerSink) nextSeq(ref gomerge.OutputRef) (uint64, error) {
	name := ref.String()
	if seq, ok := b.seq[name]; ok {
		return seq, nil
	}

	prefix := []byte(name + "/")
	var next uint64
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		// One byte past any possible sequence suffix.
		seek := append(append([]byte(nil), prefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		it.Seek(seek)
		if it.ValidForPrefix(prefix) {
			key := it.Item().Key()
			if len(key) == len(prefix)+8 {
				next = binary.BigEndian.Uint64(key[len(prefix):]) + 1
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	b.seq[name] = next
	return next, nil
}

// publicationKey builds the archive key "topic/sub/<seq>" with a big-endian
// sequence suffix so lexicographic key order matches publication order.
func publicationKey(ref gomerge.OutputRef, seq uint64) []byte {
	prefix := []byte(ref.String() + "/")
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], seq)
	return key
}

// badgerSlogAdapter adapts slog.Logger to Badger's Logger interface.
type badgerSlogAdapter struct {
	logger *slog.Logger
}

func (l *badgerSlogAdapter) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerSlogAdapter) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerSlogAdapter) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerSlogAdapter) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
