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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aaronlmathis/gomerge"
)

// S3SinkError provides structured error information for S3 sink operations.
type S3SinkError struct {
	Op  string // Operation that failed (e.g., "create_aws_config", "put_object")
	Err error  // Underlying error
}

func (e *S3SinkError) Error() string {
	return fmt.Sprintf("s3 sink %s: %v", e.Op, e.Err)
}

func (e *S3SinkError) Unwrap() error {
	return e.Err
}

// S3SinkStats holds statistics about the S3 sink's performance.
type S3SinkStats struct {
	Published     int64         // Total publications uploaded
	BytesWritten  int64         // Total bytes uploaded
	UploadErrors  int64         // Number of failed uploads
	WriteDuration time.Duration // Total time spent uploading
	LastWriteTime time.Time     // Time of last upload
}

// S3SinkOptions configures the S3 sink behavior.
type S3SinkOptions struct {
	Bucket         string          // S3 bucket name
	Prefix         string          // Key prefix for uploaded objects
	Region         string          // AWS region
	Profile        string          // AWS profile to use
	Credentials    aws.Credentials // Explicit credentials
	EndpointURL    string          // Custom S3 endpoint (for S3-compatible services)
	ForcePathStyle bool            // Use path-style addressing
	ContentType    string          // Content type for uploaded objects
	UploadTimeout  time.Duration   // Per-upload timeout
}

// SinkOptionS3 represents a configuration function for S3Sink.
type SinkOptionS3 func(*S3SinkOptions)

func WithS3SinkBucket(bucket string) SinkOptionS3 {
	return func(opts *S3SinkOptions) {
		opts.Bucket = bucket
	}
}

func WithS3SinkPrefix(prefix string) SinkOptionS3 {
	return func(opts *S3SinkOptions) {
		opts.Prefix = prefix
	}
}

func WithS3SinkRegion(region string) SinkOptionS3 {
	return func(opts *S3SinkOptions) {
		opts.Region = region
	}
}

func WithS3SinkProfile(profile string) SinkOptionS3 {
	return func(opts *S3SinkOptions) {
		opts.Profile = profile
	}
}

func WithS3SinkCredentials(creds aws.Credentials) SinkOptionS3 {
	return func(opts *S3SinkOptions) {
		opts.Credentials = creds
	}
}

func WithS3SinkEndpoint(endpoint string) SinkOptionS3 {
	return func(opts *S3SinkOptions) {
		opts.EndpointURL = endpoint
	}
}

func WithS3SinkPathStyle(pathStyle bool) SinkOptionS3 {
	return func(opts *S3SinkOptions) {
		opts.ForcePathStyle = pathStyle
	}
}

func WithS3SinkUploadTimeout(timeout time.Duration) SinkOptionS3 {
	return func(opts *S3SinkOptions) {
		opts.UploadTimeout = timeout
	}
}

// S3Sink implements gomerge.Sink, uploading each publication envelope as a
// JSON object to S3. Object keys embed the output reference and a sequence
// number so successive publications never overwrite each other. Thread-safe.
type S3Sink struct {
	client *s3.Client
	codec  gomerge.Codec
	opts   S3SinkOptions
	seq    int64
	stats  S3SinkStats
	closed bool
	mu     sync.Mutex
}

// NewS3Sink creates an S3 sink with the provided configuration options.
func NewS3Sink(codec gomerge.Codec, options ...SinkOptionS3) (*S3Sink, error) {
	opts := S3SinkOptions{
		ContentType:   "application/json",
		UploadTimeout: 30 * time.Second,
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.Bucket == "" {
		return nil, &S3SinkError{Op: "validate_options", Err: fmt.Errorf("bucket is required")}
	}

	cfg, err := createSinkAWSConfig(opts)
	if err != nil {
		return nil, &S3SinkError{Op: "create_aws_config", Err: err}
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.EndpointURL != "" {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})

	return &S3Sink{
		client: client,
		codec:  codec,
		opts:   opts,
	}, nil
}

// Publish implements the gomerge.Sink interface.
func (s *S3Sink) Publish(ctx context.Context, ref gomerge.OutputRef, obj gomerge.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &S3SinkError{Op: "publish", Err: fmt.Errorf("sink is closed")}
	}

	start := time.Now()
	defer func() {
		s.stats.WriteDuration += time.Since(start)
		s.stats.LastWriteTime = time.Now()
	}()

	rec, err := newRecord(s.codec, ref, obj)
	if err != nil {
		return &S3SinkError{Op: "encode", Err: err}
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return &S3SinkError{Op: "marshal", Err: err}
	}

	key := s.objectKey(ref)
	s.seq++

	uploadCtx := ctx
	if s.opts.UploadTimeout > 0 {
		var cancel context.CancelFunc
		uploadCtx, cancel = context.WithTimeout(ctx, s.opts.UploadTimeout)
		defer cancel()
	}

	_, err = s.client.PutObject(uploadCtx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(s.opts.ContentType),
	})
	if err != nil {
		s.stats.UploadErrors++
		return &S3SinkError{Op: "put_object", Err: err}
	}

	s.stats.Published++
	s.stats.BytesWritten += int64(len(body))
	return nil
}

// objectKey builds the S3 key for the next publication of ref.
func (s *S3Sink) objectKey(ref gomerge.OutputRef) string {
	prefix := strings.TrimSuffix(s.opts.Prefix, "/")
	key := fmt.Sprintf("%s/%d/%06d.json", ref.Topic, ref.Sub, s.seq)
	if prefix != "" {
		return prefix + "/" + key
	}
	return key
}

// Flush implements the gomerge.Sink interface. Uploads are synchronous, so
// there is nothing buffered to flush.
func (s *S3Sink) Flush() error {
	return nil
}

// Close implements the gomerge.Sink interface.
func (s *S3Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Stats returns the current statistics of the S3 sink.
func (s *S3Sink) Stats() S3SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// createSinkAWSConfig creates AWS configuration from options.
func createSinkAWSConfig(opts S3SinkOptions) (aws.Config, error) {
	configOpts := []func(*config.LoadOptions) error{}

	if opts.Region != "" {
		configOpts = append(configOpts, config.WithRegion(opts.Region))
	}

	if opts.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return aws.Config{}, err
	}

	if opts.Credentials.AccessKeyID != "" {
		cfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				opts.Credentials.AccessKeyID,
				opts.Credentials.SecretAccessKey,
				opts.Credentials.SessionToken,
			),
		)
	}

	return cfg, nil
}
