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

package metrics

import (
	"context"
	"sync"

	"github.com/aaronlmathis/gomerge"
)

// Memory records every metric it receives. Intended for tests and local
// inspection.
type Memory struct {
	mu      sync.Mutex
	metrics []gomerge.Metric
}

// NewMemory creates an empty in-memory collector.
func NewMemory() *Memory {
	return &Memory{}
}

// Send implements the gomerge.Collector interface.
func (c *Memory) Send(_ context.Context, m gomerge.Metric) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = append(c.metrics, m)
	return nil
}

// All returns a copy of every recorded metric, in order of arrival.
func (c *Memory) All() []gomerge.Metric {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]gomerge.Metric, len(c.metrics))
	copy(out, c.metrics)
	return out
}

// Last returns the most recent value recorded under name.
func (c *Memory) Last(name string) (gomerge.Metric, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.metrics) - 1; i >= 0; i-- {
		if c.metrics[i].Name == name {
			return c.metrics[i], true
		}
	}
	return gomerge.Metric{}, false
}

// Reset discards all recorded metrics.
func (c *Memory) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = nil
}
