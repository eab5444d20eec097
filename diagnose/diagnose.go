// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diagnose evaluates convergence diagnostics for every
// parameter of a simulation snapshot.
//
// Per-parameter computations are independent pure functions over the
// read-only snapshot, so the runner fans them out across a bounded
// worker pool. Numeric degeneracy (constant chains) is recorded per
// parameter rather than failing the batch; structural errors and
// insufficient-sample preconditions abort the run.
package diagnose

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/mmngreco/pystan/chains"
	"github.com/mmngreco/pystan/telemetry"
)

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

// Options configures a diagnostic run.
type Options struct {
	// RhatThreshold flags parameters whose split R-hat exceeds it.
	// Default: 1.1
	RhatThreshold float64

	// ESSFloor flags parameters whose ESS falls below it.
	// Zero disables the check. Default: 0
	ESSFloor float64

	// Workers bounds the number of parameters evaluated concurrently.
	// Default: runtime.GOMAXPROCS(0)
	Workers int

	// Sink receives one observation per parameter.
	// Default: telemetry.NoopSink
	Sink telemetry.Sink
}

func (o Options) withDefaults() Options {
	if o.RhatThreshold == 0 {
		o.RhatThreshold = 1.1
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Sink == nil {
		o.Sink = telemetry.NoopSink{}
	}
	return o
}

// -----------------------------------------------------------------------------
// Report
// -----------------------------------------------------------------------------

// ParameterResult holds one parameter's diagnostics.
type ParameterResult struct {
	// Name is the parameter name.
	Name string

	// ESS is the effective sample size. NaN if Degenerate.
	ESS float64

	// SplitRhat is the split potential scale reduction factor.
	// NaN if Degenerate.
	SplitRhat float64

	// Degenerate marks a numerically undefined parameter (constant
	// chains). Such parameters are unscoreable, not failures.
	Degenerate bool
}

// Report holds diagnostics for every parameter of a simulation, in
// the simulation's parameter order.
type Report struct {
	// Results has one entry per parameter.
	Results []ParameterResult

	// RhatThreshold and ESSFloor echo the thresholds the report was
	// evaluated against.
	RhatThreshold float64
	ESSFloor      float64
}

// Degenerate returns the number of unscoreable parameters.
func (r *Report) Degenerate() int {
	n := 0
	for _, res := range r.Results {
		if res.Degenerate {
			n++
		}
	}
	return n
}

// RhatExceeded returns the number of parameters with split R-hat
// above the threshold.
func (r *Report) RhatExceeded() int {
	n := 0
	for _, res := range r.Results {
		if !res.Degenerate && res.SplitRhat > r.RhatThreshold {
			n++
		}
	}
	return n
}

// ESSBelow returns the number of parameters with ESS below the floor.
// Zero when the floor is disabled.
func (r *Report) ESSBelow() int {
	if r.ESSFloor <= 0 {
		return 0
	}
	n := 0
	for _, res := range r.Results {
		if !res.Degenerate && res.ESS < r.ESSFloor {
			n++
		}
	}
	return n
}

// Converged reports whether every scoreable parameter passed both
// thresholds.
func (r *Report) Converged() bool {
	return r.RhatExceeded() == 0 && r.ESSBelow() == 0
}

// -----------------------------------------------------------------------------
// Runner
// -----------------------------------------------------------------------------

// Run computes ESS and split R-hat for every parameter.
//
// Description:
//
//	Parameters are evaluated concurrently over the read-only snapshot.
//	A parameter whose diagnostics are numerically undefined (zero
//	variance) is marked degenerate and the run continues; insufficient
//	samples or structural errors abort the whole run, since they
//	indicate the snapshot cannot support diagnostics at all.
//
// Inputs:
//   - ctx: Cancels the run between parameters.
//   - sim: Validated snapshot. Must not be mutated during the run.
//   - opts: Run options; zero value uses defaults.
//
// Outputs:
//   - *Report: One result per parameter, in parameter order.
//   - error: Context error, or the first fatal diagnostic error.
func Run(ctx context.Context, sim *chains.Simulation, opts Options) (*Report, error) {
	opts = opts.withDefaults()

	results := make([]ParameterResult, len(sim.Parameters))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, name := range sim.Parameters {
		i, name := i, name
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			res, err := evaluate(sim, i, name)
			if err != nil {
				return err
			}
			// Disjoint index per goroutine; no lock needed.
			results[i] = res

			// Telemetry is best-effort: a closed or failing sink must
			// not fail the diagnostics.
			_ = opts.Sink.Record(telemetry.Observation{
				Parameter:  res.Name,
				ESS:        res.ESS,
				SplitRhat:  res.SplitRhat,
				Degenerate: res.Degenerate,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Report{
		Results:       results,
		RhatThreshold: opts.RhatThreshold,
		ESSFloor:      opts.ESSFloor,
	}, nil
}

// evaluate computes both diagnostics for one parameter, folding zero
// variance into the degenerate flag.
func evaluate(sim *chains.Simulation, param int, name string) (ParameterResult, error) {
	res := ParameterResult{Name: name, ESS: math.NaN(), SplitRhat: math.NaN()}

	ess, err := sim.EffectiveSampleSize(param)
	switch {
	case errors.Is(err, chains.ErrZeroVariance):
		res.Degenerate = true
		return res, nil
	case err != nil:
		return res, fmt.Errorf("parameter %q: %w", name, err)
	}

	srhat, err := sim.SplitPotentialScaleReduction(param)
	switch {
	case errors.Is(err, chains.ErrZeroVariance):
		res.Degenerate = true
		return res, nil
	case err != nil:
		return res, fmt.Errorf("parameter %q: %w", name, err)
	}

	res.ESS = ess
	res.SplitRhat = srhat
	return res, nil
}
