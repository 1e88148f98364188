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

// Package gomerge defines the core interfaces and types for the GoMerge library.
//
// GoMerge is an interface-driven library for aggregating partial results produced
// by many parallel upstream workers (histograms, counters, arbitrary mergeable
// snapshots) into one logical combined object on a periodic cadence. This file
// contains the payload object model and the collaborator interfaces for
// serialization, egress, and observability.
package gomerge

import (
	"context"
	"fmt"
)

// Kind identifies which merge capability a payload carries.
// Exactly one kind is valid per merge instance; mixing kinds within a run is a
// configuration error.
type Kind int

const (
	// KindNone is the explicit empty state: no payload. A merge over an empty
	// store yields a KindNone object, and publishing it is a no-op.
	KindNone Kind = iota
	// KindSingleton is a single self-contained object combined via an external
	// Combiner function.
	KindSingleton
	// KindMergeable is an object exposing its own merge operation through the
	// Mergeable interface.
	KindMergeable
	// KindCollection is an ordered sequence of singleton objects, merged
	// pairwise by position. Both sides of a merge must have equal length.
	KindCollection
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSingleton:
		return "singleton"
	case KindMergeable:
		return "mergeable"
	case KindCollection:
		return "collection"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Mergeable is implemented by payloads that know how to absorb another
// instance of the same concrete type.
type Mergeable interface {
	// MergeWith absorbs other into the receiver. The receiver is mutated.
	MergeWith(other Mergeable) error
}

// Combiner merges src into dst in place. It is the external elementwise-merge
// function used for KindSingleton payloads and for the elements of
// KindCollection payloads. For histogram-like payloads this is typically
// per-bin numeric addition, but the engine treats it as opaque.
type Combiner func(dst, src any) error

// Object is a tagged union over the supported payload kinds, including an
// explicit empty variant. Use the constructors below; the zero value is the
// empty object.
type Object struct {
	kind  Kind
	value any
}

// Empty returns the explicit empty object (KindNone).
func Empty() Object {
	return Object{}
}

// Singleton wraps a self-contained payload value combined via a Combiner.
func Singleton(v any) Object {
	return Object{kind: KindSingleton, value: v}
}

// MergeableObject wraps a payload implementing the Mergeable interface.
func MergeableObject(m Mergeable) Object {
	return Object{kind: KindMergeable, value: m}
}

// Collection wraps an ordered sequence of singleton payloads.
func Collection(items []any) Object {
	return Object{kind: KindCollection, value: items}
}

// Kind returns the object's kind tag.
func (o Object) Kind() Kind { return o.kind }

// IsEmpty reports whether the object is the explicit empty variant.
func (o Object) IsEmpty() bool { return o.kind == KindNone }

// Value returns the wrapped payload: the singleton value, the Mergeable, or
// the []any collection. It is nil for the empty object.
func (o Object) Value() any { return o.value }

// AsMergeable returns the payload as a Mergeable, if the object carries one.
func (o Object) AsMergeable() (Mergeable, bool) {
	if o.kind != KindMergeable {
		return nil, false
	}
	m, ok := o.value.(Mergeable)
	return m, ok
}

// Items returns the payload as a collection, if the object carries one.
func (o Object) Items() ([]any, bool) {
	if o.kind != KindCollection {
		return nil, false
	}
	items, ok := o.value.([]any)
	return items, ok
}

// Origin identifies one upstream producer for the lifetime of a run.
// It is built from the update's category, subcategory, and numeric
// sub-identifier.
type Origin struct {
	Category    string
	Subcategory string
	Sub         uint32
}

// ID returns the stable origin key, "category/subcategory/sub".
func (o Origin) ID() string {
	return fmt.Sprintf("%s/%s/%d", o.Category, o.Subcategory, o.Sub)
}

// Update is one tagged snapshot delivered by the ingress collaborator.
// The payload is opaque serialized bytes; the configured Codec decodes it.
type Update struct {
	Origin  Origin
	Payload []byte
}

// OutputRef tags published results with the instance's configured output
// identity. RunID distinguishes publications from different runs of the same
// merge instance.
type OutputRef struct {
	Topic string
	Sub   uint32
	RunID string
}

// String returns "topic/sub" for logging and sink keys.
func (r OutputRef) String() string {
	return fmt.Sprintf("%s/%d", r.Topic, r.Sub)
}

// Codec serializes and deserializes payload objects. One codec instance
// serves one merge instance, so every decoded object carries the same kind.
type Codec interface {
	// Decode deserializes a payload. Implementations must never return a
	// KindNone object together with a nil error.
	Decode(data []byte) (Object, error)
	// Encode serializes a payload for egress or archival.
	Encode(obj Object) ([]byte, error)
}

// Sink receives merged results from the publish step.
// Implementations write them to a destination (JSON lines, PostgreSQL,
// Parquet, S3, MongoDB, Badger).
type Sink interface {
	// Publish hands one merged result to the destination.
	Publish(ctx context.Context, ref OutputRef, obj Object) error
	// Flush ensures all buffered publications are written out.
	Flush() error
	// Close releases any resources held by the sink.
	Close() error
}

// MetricMode qualifies how a metric value should be interpreted downstream.
type MetricMode int

const (
	// ModeGauge is a point-in-time value.
	ModeGauge MetricMode = iota
	// ModeRate marks a cumulative value whose derivative is the interesting
	// quantity.
	ModeRate
)

// Metric is one numeric observation emitted after a publish.
type Metric struct {
	Name  string
	Value float64
	Mode  MetricMode
}

// Collector receives the per-publication metrics.
// Implementations forward them to an observability backend.
type Collector interface {
	Send(ctx context.Context, m Metric) error
}

// CollectorFunc is a function adapter for the Collector interface.
// Allows ordinary functions to be used as Collectors.
type CollectorFunc func(ctx context.Context, m Metric) error

// Send implements the Collector interface for CollectorFunc.
func (f CollectorFunc) Send(ctx context.Context, m Metric) error {
	return f(ctx, m)
}

// NopCollector discards all metrics. It is the default when no collector is
// configured.
type NopCollector struct{}

// Send implements the Collector interface.
func (NopCollector) Send(context.Context, Metric) error { return nil }
