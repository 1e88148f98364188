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

// Package config loads merger configuration from defaults, an optional YAML
// file, and environment variables, in that order of increasing priority.
//
// Environment variables use the GOMERGE_ prefix with double underscores
// standing in for dots: GOMERGE_PUBLISH__TICK_INTERVAL maps to
// publish.tick_interval.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/aaronlmathis/gomerge/merger"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "GOMERGE_"

// Settings is the root configuration for a merger process.
type Settings struct {
	Output  OutputSettings  `koanf:"output"`
	Publish PublishSettings `koanf:"publish"`
	Sink    SinkSettings    `koanf:"sink"`
	Metrics MetricsSettings `koanf:"metrics"`
}

// OutputSettings names the merged output.
type OutputSettings struct {
	Topic string `koanf:"topic"`
	Sub   uint32 `koanf:"sub"`
	RunID string `koanf:"run_id"`
}

// PublishSettings controls publication cadence and retention.
type PublishSettings struct {
	TickInterval time.Duration `koanf:"tick_interval"`
	Policy       string        `koanf:"policy"` // "n_cycles" or "last_difference"
	Cycles       int64         `koanf:"cycles"` // reset period for n_cycles
}

// SinkSettings selects and configures the publication sink.
type SinkSettings struct {
	Kind     string           `koanf:"kind"` // "json", "postgres", "mongo", "s3", "parquet", "badger"
	Path     string           `koanf:"path"` // file or directory for file-backed sinks
	Postgres PostgresSettings `koanf:"postgres"`
	Mongo    MongoSettings    `koanf:"mongo"`
	S3       S3Settings       `koanf:"s3"`
}

// PostgresSettings configures the PostgreSQL sink.
type PostgresSettings struct {
	DSN         string `koanf:"dsn"`
	Table       string `koanf:"table"`
	CreateTable bool   `koanf:"create_table"`
}

// MongoSettings configures the MongoDB sink.
type MongoSettings struct {
	URI        string `koanf:"uri"`
	Database   string `koanf:"database"`
	Collection string `koanf:"collection"`
}

// S3Settings configures the S3 sink.
type S3Settings struct {
	Bucket    string `koanf:"bucket"`
	Prefix    string `koanf:"prefix"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	PathStyle bool   `koanf:"path_style"`
}

// MetricsSettings configures metric export.
type MetricsSettings struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen"`
}

// defaults is the base configuration layer.
var defaults = map[string]any{
	"output.topic":          "merged",
	"output.sub":            0,
	"publish.tick_interval": "10s",
	"publish.policy":        "n_cycles",
	"publish.cycles":        1,
	"sink.kind":             "json",
	"sink.postgres.table":   "gomerge_publications",
	"sink.mongo.uri":        "mongodb://localhost:27017",
	"sink.mongo.collection": "gomerge_publications",
	"metrics.enabled":       false,
	"metrics.listen":        ":9090",
}

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges all sources and returns the resulting settings.
func (l *Loader) Load() (*Settings, error) {
	if err := l.k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if l.filePath != "" {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", l.filePath, err)
		}
	}

	// GOMERGE_PUBLISH__TICK_INTERVAL -> publish.tick_interval
	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		s = strings.ToLower(s)
		s = strings.ReplaceAll(s, "__", ".")
		return s
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", envTransformer), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var settings Settings
	if err := l.k.Unmarshal("", &settings); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate checks the settings for internal consistency.
func (s *Settings) Validate() error {
	if s.Output.Topic == "" {
		return fmt.Errorf("config: output.topic is required")
	}
	if s.Publish.TickInterval <= 0 {
		return fmt.Errorf("config: publish.tick_interval must be positive")
	}
	switch s.Publish.Policy {
	case "n_cycles":
		if s.Publish.Cycles <= 0 {
			return fmt.Errorf("config: publish.cycles must be positive for the n_cycles policy")
		}
	case "last_difference":
	default:
		return fmt.Errorf("config: unknown publish.policy %q", s.Publish.Policy)
	}
	switch s.Sink.Kind {
	case "json", "postgres", "mongo", "s3", "parquet", "badger":
	default:
		return fmt.Errorf("config: unknown sink.kind %q", s.Sink.Kind)
	}
	return nil
}

// RetentionPolicy builds the retention policy described by the settings.
func (s *Settings) RetentionPolicy() merger.RetentionPolicy {
	if s.Publish.Policy == "last_difference" {
		return merger.LastDifference()
	}
	return merger.NCycles(int(s.Publish.Cycles))
}
