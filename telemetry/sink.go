// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry exports convergence diagnostics to monitoring
// systems. The diagnose runner feeds one Observation per parameter
// into a Sink; the Prometheus implementation exposes them as gauges
// for scraping during a live sampler run.
package telemetry

import "errors"

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrSinkClosed is returned when recording to a closed sink.
	ErrSinkClosed = errors.New("sink has been closed")
)

// -----------------------------------------------------------------------------
// Interface
// -----------------------------------------------------------------------------

// Observation is one parameter's diagnostics from a single run.
type Observation struct {
	// Parameter is the parameter name.
	Parameter string

	// ESS is the effective sample size. Meaningless if Degenerate.
	ESS float64

	// SplitRhat is the split potential scale reduction factor.
	// Meaningless if Degenerate.
	SplitRhat float64

	// Degenerate marks a parameter whose diagnostics were numerically
	// undefined (constant chains).
	Degenerate bool
}

// Sink receives per-parameter diagnostic observations.
//
// Thread Safety: All implementations must be safe for concurrent use;
// the diagnose runner records from multiple goroutines.
type Sink interface {
	// Record stores one observation.
	Record(obs Observation) error

	// Close releases resources. Record returns ErrSinkClosed afterward.
	Close() error
}

// -----------------------------------------------------------------------------
// Noop
// -----------------------------------------------------------------------------

// NoopSink discards all observations. It is the default sink.
type NoopSink struct{}

// Record discards the observation.
func (NoopSink) Record(Observation) error { return nil }

// Close is a no-op.
func (NoopSink) Close() error { return nil }
