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

// Package merger implements the incremental multi-source merge engine.
//
// A Merger tracks one snapshot per origin, combines them into one logical
// merged object on every tick, publishes the result through a gomerge.Sink,
// and applies a retention policy that decides how much history survives
// between publications.
//
// Example usage:
//
//	m, err := merger.NewMerger().
//	    WithCodec(codec.NewJSON(gomerge.KindSingleton, func() any { return &objects.Histogram{} })).
//	    WithCombiner(objects.CombineHistograms).
//	    WithSink(sink).
//	    WithCollector(collector).
//	    WithPolicy(merger.NCycles(3)).
//	    WithOutput("tpc-clusters", 1).
//	    Build()
//	if err != nil { log.Fatal(err) }
//	err = m.Run(ctx, updates, time.Second*10)
//
// A Merger is single-threaded and cooperative: ingestion, merge, and publish
// run strictly sequentially, invoked by an external scheduler (or by Run,
// which owns the instance for its lifetime). It holds no internal locks.
// Multiple instances may run concurrently, each owning independent state.
package merger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aaronlmathis/gomerge"
)

// MergerBuilder provides a fluent API for constructing a Merger.
// Use NewMerger() to create a builder, then chain configuration methods and
// finish with Build.
type MergerBuilder struct {
	m *Merger
}

// NewMerger creates a new MergerBuilder.
func NewMerger() *MergerBuilder {
	return &MergerBuilder{
		m: &Merger{
			policy:    NCycles(1),
			collector: gomerge.NopCollector{},
		},
	}
}

// WithCodec sets the payload codec. Required.
func (b *MergerBuilder) WithCodec(codec gomerge.Codec) *MergerBuilder {
	b.m.codec = codec
	return b
}

// WithSink sets the egress collaborator receiving merged results. Required.
func (b *MergerBuilder) WithSink(sink gomerge.Sink) *MergerBuilder {
	b.m.sink = sink
	return b
}

// WithCollector sets the observability collaborator. Defaults to a
// gomerge.NopCollector.
func (b *MergerBuilder) WithCollector(collector gomerge.Collector) *MergerBuilder {
	b.m.collector = collector
	return b
}

// WithCombiner sets the external elementwise-merge function used for
// singleton and collection payloads. Required for those kinds.
func (b *MergerBuilder) WithCombiner(combiner gomerge.Combiner) *MergerBuilder {
	b.m.combiner = combiner
	return b
}

// WithPolicy sets the retention policy. Defaults to NCycles(1).
func (b *MergerBuilder) WithPolicy(policy RetentionPolicy) *MergerBuilder {
	b.m.policy = policy
	return b
}

// WithOutput sets the topic and sub-identifier tagging published results.
func (b *MergerBuilder) WithOutput(topic string, sub uint32) *MergerBuilder {
	b.m.output.Topic = topic
	b.m.output.Sub = sub
	return b
}

// WithLogger sets the logger. Defaults to slog.Default().
func (b *MergerBuilder) WithLogger(logger *slog.Logger) *MergerBuilder {
	b.m.logger = logger
	return b
}

// Build validates and constructs the Merger from the builder.
func (b *MergerBuilder) Build() (*Merger, error) {
	m := b.m
	if m.codec == nil {
		return nil, fmt.Errorf("merger requires a codec")
	}
	if m.sink == nil {
		return nil, fmt.Errorf("merger requires a sink")
	}
	if err := m.policy.validate(); err != nil {
		return nil, err
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.output.RunID == "" {
		m.output.RunID = uuid.NewString()
	}
	m.store = newSnapshotStore(m.codec)
	return m, nil
}

// Merger is one merge instance. It is not safe for concurrent use; see the
// package documentation for the threading model.
type Merger struct {
	codec     gomerge.Codec
	sink      gomerge.Sink
	collector gomerge.Collector
	combiner  gomerge.Combiner
	policy    RetentionPolicy
	output    gomerge.OutputRef
	logger    *slog.Logger

	store *snapshotStore

	cyclesSinceReset     int64
	objectsMerged        int64
	totalObjectsMerged   int64
	updatesReceived      int64
	totalUpdatesReceived int64
}

// Output returns the output reference tagging this instance's publications.
func (m *Merger) Output() gomerge.OutputRef {
	return m.output
}

// Update ingests one tagged snapshot. A repeat update from an origin already
// present overwrites the previous value for that origin within the current
// cycle. A DecodeError leaves all state untouched; the instance keeps
// operating on subsequent valid updates.
func (m *Merger) Update(u gomerge.Update) error {
	id := u.Origin.ID()
	if m.store.isEmpty() {
		m.logger.Debug("received the first input object in the run or after the last reset",
			"origin", id)
	}
	if err := m.store.upsert(id, u.Payload); err != nil {
		return err
	}
	m.updatesReceived++
	return nil
}

// Tick runs one merge+publish cycle over everything accumulated since the
// previous tick, then lets the retention policy decide whether state is kept
// or cleared. With nothing accumulated it is a no-op.
func (m *Merger) Tick(ctx context.Context) error {
	if m.store.isEmpty() {
		m.logger.Debug("nothing accumulated, skipping publication", "output", m.output.String())
		return nil
	}

	m.cyclesSinceReset++
	obj, err := m.mergeCache()
	if err != nil {
		// An aborted merge produced no publication, so it does not count
		// as a cycle.
		m.cyclesSinceReset--
		return err
	}
	if err := m.publish(ctx, obj); err != nil {
		return err
	}

	if m.policy.shouldClear(m.cyclesSinceReset) {
		m.clear()
	}
	return nil
}

// EndOfStream forces one final merge+publish outside the normal tick cadence,
// using whatever has accumulated so far. It neither advances the cycle count
// nor applies the retention policy; the instance is terminal afterwards.
func (m *Merger) EndOfStream(ctx context.Context) error {
	obj, err := m.mergeCache()
	if err != nil {
		return err
	}
	return m.publish(ctx, obj)
}

// StartOfRun unconditionally clears all state. It guards against
// start-stop-start sequences leaving stale snapshots behind.
func (m *Merger) StartOfRun() {
	m.clear()
}

// clear is the only reset path: it releases the template and cache and zeroes
// every counter, cumulative totals included. It is invoked from exactly two
// triggers: the retention policy after a publish, and a start-of-run signal.
func (m *Merger) clear() {
	m.store.reset()
	m.cyclesSinceReset = 0
	m.objectsMerged = 0
	m.totalObjectsMerged = 0
	m.updatesReceived = 0
	m.totalUpdatesReceived = 0
}

// Run drives the instance from an update channel and an internal ticker until
// the context is cancelled or the channel closes. Closing the channel is the
// end-of-stream signal and triggers one final publication. Undecodable
// updates are logged and skipped; kind mismatches and invariant violations
// stop the run.
//
// Run owns the Merger: no other goroutine may call its methods while Run is
// active.
func (m *Merger) Run(ctx context.Context, updates <-chan gomerge.Update, tickInterval time.Duration) error {
	if tickInterval <= 0 {
		return fmt.Errorf("merger requires a positive tick interval, got %v", tickInterval)
	}
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	defer func() {
		if err := m.sink.Flush(); err != nil {
			m.logger.Warn("failed to flush sink", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case u, ok := <-updates:
			if !ok {
				return m.EndOfStream(ctx)
			}
			if err := m.Update(u); err != nil {
				var decodeErr *gomerge.DecodeError
				if errors.As(err, &decodeErr) {
					m.logger.Warn("dropping undecodable update",
						"origin", u.Origin.ID(), "error", err)
					continue
				}
				return err
			}

		case <-ticker.C:
			if err := m.Tick(ctx); err != nil {
				return err
			}
		}
	}
}
