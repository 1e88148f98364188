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

package merger

import (
	"context"

	"github.com/aaronlmathis/gomerge"
)

// Names of the metrics emitted to the observability collaborator after each
// publication.
const (
	MetricTotalObjectsMerged = "total_objects_merged"
	MetricObjectsMerged      = "objects_merged_since_last_publication"
	MetricTotalUpdates       = "total_updates_received"
	MetricUpdatesReceived    = "updates_received_since_last_publication"
	MetricCyclesSinceReset   = "cycles_since_reset"
)

// publish hands the merged result to the egress collaborator, flushes the
// per-cycle counters into running totals, and emits the per-publication
// metrics. An empty result is a first-class no-op: nothing arrived yet, no
// emission, no counter mutation.
func (m *Merger) publish(ctx context.Context, obj gomerge.Object) error {
	if obj.IsEmpty() {
		m.logger.Info("no objects received since start or reset, nothing to publish",
			"output", m.output.String())
		return nil
	}

	if err := m.sink.Publish(ctx, m.output, obj); err != nil {
		// The store held data and the merge produced a result, so a failed
		// handoff means state we cannot reason about.
		return &gomerge.InvariantError{Op: "publish", Err: err}
	}
	m.logger.Info("published merged object",
		"output", m.output.String(),
		"partial_objects", m.store.size(),
		"updates_last_cycle", m.updatesReceived)

	m.totalObjectsMerged += m.objectsMerged
	m.totalUpdatesReceived += m.updatesReceived

	m.send(ctx, gomerge.Metric{Name: MetricTotalObjectsMerged, Value: float64(m.totalObjectsMerged), Mode: gomerge.ModeRate})
	m.send(ctx, gomerge.Metric{Name: MetricObjectsMerged, Value: float64(m.objectsMerged)})
	m.send(ctx, gomerge.Metric{Name: MetricTotalUpdates, Value: float64(m.totalUpdatesReceived), Mode: gomerge.ModeRate})
	m.send(ctx, gomerge.Metric{Name: MetricUpdatesReceived, Value: float64(m.updatesReceived)})
	m.send(ctx, gomerge.Metric{Name: MetricCyclesSinceReset, Value: float64(m.cyclesSinceReset)})

	m.objectsMerged = 0
	m.updatesReceived = 0
	return nil
}

// send forwards one metric. Observability is optional context: a failing
// collector is logged and ignored.
func (m *Merger) send(ctx context.Context, metric gomerge.Metric) {
	if err := m.collector.Send(ctx, metric); err != nil {
		m.logger.Warn("failed to send metric", "name", metric.Name, "error", err)
	}
}
