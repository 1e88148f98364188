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

// Package metrics provides gomerge.Collector implementations: a Prometheus
// collector for production and an in-memory collector for tests.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aaronlmathis/gomerge"
)

// Prometheus forwards merger metrics to a Prometheus registry as gauges named
// gomerge_<metric>, carrying the configured constant labels (typically the
// output topic and sub-identifier). Cumulative values are exported as-is;
// rate derivation is the query side's business.
type Prometheus struct {
	gauges map[string]prometheus.Gauge
}

// NewPrometheus creates a collector registered with reg. Labels may be nil.
func NewPrometheus(reg prometheus.Registerer, labels prometheus.Labels) (*Prometheus, error) {
	p := &Prometheus{gauges: make(map[string]prometheus.Gauge)}

	for name, help := range map[string]string{
		"total_objects_merged":                    "Cumulative number of objects merged since the last reset.",
		"objects_merged_since_last_publication":   "Objects merged during the last cycle.",
		"total_updates_received":                  "Cumulative number of updates received since the last reset.",
		"updates_received_since_last_publication": "Updates received during the last cycle.",
		"cycles_since_reset":                      "Merge cycles elapsed since the last reset.",
	} {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "gomerge",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
		if err := reg.Register(g); err != nil {
			return nil, fmt.Errorf("register gomerge_%s: %w", name, err)
		}
		p.gauges[name] = g
	}
	return p, nil
}

// Send implements the gomerge.Collector interface.
func (p *Prometheus) Send(_ context.Context, m gomerge.Metric) error {
	g, ok := p.gauges[m.Name]
	if !ok {
		return fmt.Errorf("unknown metric %q", m.Name)
	}
	g.Set(m.Value)
	return nil
}
