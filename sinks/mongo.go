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
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aaronlmathis/gomerge"
)

// MongoSinkError provides structured error information for MongoDB sink
// operations.
type MongoSinkError struct {
	Op  string // Operation that failed (e.g., "connect", "insert")
	Err error  // Underlying error
}

func (e *MongoSinkError) Error() string {
	return fmt.Sprintf("mongo sink %s: %v", e.Op, e.Err)
}

func (e *MongoSinkError) Unwrap() error {
	return e.Err
}

// MongoSinkStats holds statistics about the MongoDB sink's performance.
type MongoSinkStats struct {
	Published     int64         // Total publications inserted
	InsertErrors  int64         // Number of failed inserts
	WriteDuration time.Duration // Total time spent inserting
	LastWriteTime time.Time     // Time of last insert
}

// MongoSinkOptions configures the MongoDB sink behavior.
type MongoSinkOptions struct {
	URI             string        // MongoDB connection URI
	Database        string        // Database name
	Collection      string        // Collection name
	Timeout         time.Duration // Operation timeout
	MaxPoolSize     uint64        // Connection pool size
	MaxConnIdleTime time.Duration // Max idle time for connections
	AuthDatabase    string        // Authentication database
	Username        string        // Authentication username
	Password        string        // Authentication password
	TLS             bool          // Enable TLS
	TLSInsecure     bool          // Skip TLS verification
}

// SinkOptionMongo represents a configuration function for MongoSink.
type SinkOptionMongo func(*MongoSinkOptions)

func WithMongoURI(uri string) SinkOptionMongo {
	return func(opts *MongoSinkOptions) {
		opts.URI = uri
	}
}

func WithMongoDatabase(database string) SinkOptionMongo {
	return func(opts *MongoSinkOptions) {
		opts.Database = database
	}
}

func WithMongoCollection(collection string) SinkOptionMongo {
	return func(opts *MongoSinkOptions) {
		opts.Collection = collection
	}
}

func WithMongoTimeout(timeout time.Duration) SinkOptionMongo {
	return func(opts *MongoSinkOptions) {
		opts.Timeout = timeout
	}
}

func WithMongoMaxPoolSize(size uint64) SinkOptionMongo {
	return func(opts *MongoSinkOptions) {
		opts.MaxPoolSize = size
	}
}

func WithMongoAuth(username, password, authDatabase string) SinkOptionMongo {
	return func(opts *MongoSinkOptions) {
		opts.Username = username
		opts.Password = password
		opts.AuthDatabase = authDatabase
	}
}

func WithMongoTLS(enable, insecure bool) SinkOptionMongo {
	return func(opts *MongoSinkOptions) {
		opts.TLS = enable
		opts.TLSInsecure = insecure
	}
}

// MongoSink implements gomerge.Sink, inserting each publication envelope as
// a document into a MongoDB collection. Thread-safe.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	codec      gomerge.Codec
	opts       MongoSinkOptions
	stats      MongoSinkStats
	closed     bool
	mu         sync.Mutex
}

// NewMongoSink creates a MongoDB sink and verifies the connection.
func NewMongoSink(ctx context.Context, codec gomerge.Codec, options ...SinkOptionMongo) (*MongoSink, error) {
	opts := MongoSinkOptions{
		URI:        "mongodb://localhost:27017",
		Collection: "gomerge_publications",
		Timeout:    30 * time.Second,
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.Database == "" {
		return nil, &MongoSinkError{Op: "validate_options", Err: fmt.Errorf("database is required")}
	}

	clientOpts := buildMongoClientOptions(opts)

	connectCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, &MongoSinkError{Op: "connect", Err: err}
	}

	// Ping to verify connection
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, &MongoSinkError{Op: "ping", Err: err}
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(opts.Database).Collection(opts.Collection),
		codec:      codec,
		opts:       opts,
	}, nil
}

// buildMongoClientOptions constructs MongoDB client options from sink
// configuration.
func buildMongoClientOptions(opts MongoSinkOptions) *options.ClientOptions {
	clientOpts := options.Client().ApplyURI(opts.URI)

	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MaxConnIdleTime > 0 {
		clientOpts.SetMaxConnIdleTime(opts.MaxConnIdleTime)
	}
	if opts.Timeout > 0 {
		clientOpts.SetConnectTimeout(opts.Timeout)
	}

	if opts.Username != "" && opts.Password != "" {
		auth := options.Credential{
			Username:   opts.Username,
			Password:   opts.Password,
			AuthSource: opts.AuthDatabase,
		}
		if auth.AuthSource == "" {
			auth.AuthSource = opts.Database
		}
		clientOpts.SetAuth(auth)
	}

	if opts.TLS {
		clientOpts.SetTLSConfig(&tls.Config{
			InsecureSkipVerify: opts.TLSInsecure,
		})
	}

	return clientOpts
}

// Publish implements the gomerge.Sink interface.
func (m *MongoSink) Publish(ctx context.Context, ref gomerge.OutputRef, obj gomerge.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return &MongoSinkError{Op: "publish", Err: fmt.Errorf("sink is closed")}
	}

	start := time.Now()
	defer func() {
		m.stats.WriteDuration += time.Since(start)
		m.stats.LastWriteTime = time.Now()
	}()

	rec, err := newRecord(m.codec, ref, obj)
	if err != nil {
		return &MongoSinkError{Op: "encode", Err: err}
	}

	insertCtx := ctx
	if m.opts.Timeout > 0 {
		var cancel context.CancelFunc
		insertCtx, cancel = context.WithTimeout(ctx, m.opts.Timeout)
		defer cancel()
	}

	if _, err := m.collection.InsertOne(insertCtx, rec); err != nil {
		m.stats.InsertErrors++
		return &MongoSinkError{Op: "insert", Err: err}
	}

	m.stats.Published++
	return nil
}

// Flush implements the gomerge.Sink interface. Inserts are synchronous, so
// there is nothing buffered to flush.
func (m *MongoSink) Flush() error {
	return nil
}

// Close implements the gomerge.Sink interface.
func (m *MongoSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.Timeout)
	defer cancel()

	if err := m.client.Disconnect(ctx); err != nil {
		return &MongoSinkError{Op: "disconnect", Err: err}
	}
	return nil
}

// Stats returns the current statistics of the MongoDB sink.
func (m *MongoSink) Stats() MongoSinkStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
