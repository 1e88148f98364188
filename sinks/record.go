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

// Package sinks provides implementations of gomerge.Sink for delivering
// merged results to various destinations: JSON lines, PostgreSQL, Parquet,
// S3, MongoDB, and a local Badger archive.
package sinks

import (
	"encoding/json"
	"time"

	"github.com/aaronlmathis/gomerge"
)

// Record is the flattened form of one publication shared by the sinks.
type Record struct {
	RunID       string          `json:"run_id" bson:"run_id"`
	Topic       string          `json:"topic" bson:"topic"`
	Sub         uint32          `json:"sub" bson:"sub"`
	Kind        string          `json:"kind" bson:"kind"`
	PublishedAt time.Time       `json:"published_at" bson:"published_at"`
	Payload     json.RawMessage `json:"payload" bson:"payload"`
}

// newRecord encodes one merged object into the shared envelope.
func newRecord(codec gomerge.Codec, ref gomerge.OutputRef, obj gomerge.Object) (Record, error) {
	payload, err := codec.Encode(obj)
	if err != nil {
		return Record{}, err
	}
	return Record{
		RunID:       ref.RunID,
		Topic:       ref.Topic,
		Sub:         ref.Sub,
		Kind:        obj.Kind().String(),
		PublishedAt: time.Now().UTC(),
		Payload:     payload,
	}, nil
}
