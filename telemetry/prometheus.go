// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrInvalidConfig is returned when the Prometheus configuration
	// is invalid.
	ErrInvalidConfig = errors.New("invalid prometheus configuration")
)

// PrometheusConfig configures the Prometheus sink.
//
// Thread Safety: Immutable after creation; safe for concurrent reads.
type PrometheusConfig struct {
	// Namespace is the metrics namespace (e.g., "standiag").
	// Required.
	Namespace string

	// Subsystem is the metrics subsystem (e.g., "convergence").
	// Required.
	Subsystem string

	// Registry is the Prometheus registry to use.
	// If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// MaxLabelCardinality is the maximum number of unique parameter
	// names to track. When exceeded, new names are mapped to "_other".
	// Default: 1000
	MaxLabelCardinality int
}

// DefaultPrometheusConfig returns a configuration with sensible defaults.
func DefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Namespace:           "standiag",
		Subsystem:           "convergence",
		MaxLabelCardinality: 1000,
	}
}

// Validate checks that the configuration is valid.
func (c *PrometheusConfig) Validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("%w: namespace is required", ErrInvalidConfig)
	}
	if c.Subsystem == "" {
		return fmt.Errorf("%w: subsystem is required", ErrInvalidConfig)
	}
	if c.MaxLabelCardinality < 0 {
		return fmt.Errorf("%w: max label cardinality must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// PrometheusSink exports diagnostics as Prometheus metrics.
//
// Description:
//
//	Per-parameter ESS and split R-hat are exposed as gauges labeled by
//	parameter name; degenerate parameters increment a counter instead
//	of updating the gauges. Label cardinality is bounded: once
//	MaxLabelCardinality distinct parameter names have been seen, new
//	names collapse into the "_other" label.
//
// Thread Safety: Safe for concurrent use.
type PrometheusSink struct {
	ess        *prometheus.GaugeVec
	splitRhat  *prometheus.GaugeVec
	degenerate *prometheus.CounterVec
	recorded   prometheus.Counter

	mu      sync.Mutex
	closed  bool
	seen    map[string]struct{}
	maxSeen int
}

// NewPrometheusSink creates a Prometheus sink and registers its
// metrics.
//
// Inputs:
//   - config: Sink configuration. Nil uses defaults.
//
// Outputs:
//   - *PrometheusSink: Registered sink. Never nil on success.
//   - error: ErrInvalidConfig, or a registration error from the
//     Prometheus registry (e.g., duplicate registration).
func NewPrometheusSink(config *PrometheusConfig) (*PrometheusSink, error) {
	if config == nil {
		config = DefaultPrometheusConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	registry := config.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	maxSeen := config.MaxLabelCardinality
	if maxSeen == 0 {
		maxSeen = 1000
	}

	s := &PrometheusSink{
		ess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "ess",
			Help:      "Effective sample size per parameter.",
		}, []string{"parameter"}),
		splitRhat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "split_rhat",
			Help:      "Split potential scale reduction factor per parameter.",
		}, []string{"parameter"}),
		degenerate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "degenerate_total",
			Help:      "Parameters whose diagnostics were numerically undefined.",
		}, []string{"parameter"}),
		recorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "observations_total",
			Help:      "Total diagnostic observations recorded.",
		}),
		seen:    make(map[string]struct{}),
		maxSeen: maxSeen,
	}

	for _, c := range []prometheus.Collector{s.ess, s.splitRhat, s.degenerate, s.recorded} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return s, nil
}

// Record stores one observation.
//
// Thread Safety: Safe for concurrent use.
func (s *PrometheusSink) Record(obs Observation) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	label := s.boundedLabel(obs.Parameter)
	s.mu.Unlock()

	s.recorded.Inc()
	if obs.Degenerate {
		s.degenerate.WithLabelValues(label).Inc()
		return nil
	}
	s.ess.WithLabelValues(label).Set(obs.ESS)
	s.splitRhat.WithLabelValues(label).Set(obs.SplitRhat)
	return nil
}

// Close marks the sink closed. Metrics stay registered so scrapes
// continue to see the last values.
func (s *PrometheusSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// boundedLabel maps a parameter name to its metric label, collapsing
// overflow into "_other". Caller holds s.mu.
func (s *PrometheusSink) boundedLabel(parameter string) string {
	if _, ok := s.seen[parameter]; ok {
		return parameter
	}
	if len(s.seen) >= s.maxSeen {
		return "_other"
	}
	s.seen[parameter] = struct{}{}
	return parameter
}
