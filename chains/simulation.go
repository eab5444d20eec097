// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package chains

import "fmt"

// Simulation is an immutable snapshot of MCMC sampler output.
//
// Description:
//
//	Simulation holds the raw draws of every chain, including warmup.
//	Each chain k retains NSave[k] draws, of which the leading
//	Warmup2[k] are discarded by the extraction routines. All chains
//	expose the same parameters in the same order; Parameters defines
//	the index used by the diagnostic entry points.
//
// Thread Safety: Treat as read-only once constructed. The diagnostic
// methods never mutate the snapshot, so concurrent reads are safe.
type Simulation struct {
	// Chains is the number of independent chains, m >= 1.
	Chains int

	// NSave holds the total retained draw count per chain, including
	// warmup. Length Chains.
	NSave []int

	// Warmup2 holds the number of leading draws to discard per chain.
	// 0 <= Warmup2[k] <= NSave[k]. Length Chains.
	Warmup2 []int

	// Parameters is the common parameter ordering across all chains.
	Parameters []string

	// Samples maps parameter name to the full draw sequence for each
	// chain. Samples[k][name] has length NSave[k]. Length Chains.
	Samples []map[string][]float64
}

// NewSimulation validates a snapshot and returns it.
//
// Description:
//
//	Checks the structural invariants: m >= 1, per-chain slice lengths
//	agree, warmup bounds hold, and every chain exposes every parameter
//	with the declared draw count. Statistical preconditions (enough
//	post-warmup draws, non-constant chains) are checked by the
//	diagnostic methods, not here, so a snapshot with a degenerate
//	parameter can still be scored on its other parameters.
//
// Inputs:
//   - sim: Candidate snapshot.
//
// Outputs:
//   - *Simulation: The validated snapshot (same value passed in).
//   - error: ErrMalformedSimulation (wrapped) describing the first
//     violation found.
func NewSimulation(sim Simulation) (*Simulation, error) {
	if sim.Chains < 1 {
		return nil, fmt.Errorf("%w: chain count %d < 1", ErrMalformedSimulation, sim.Chains)
	}
	if len(sim.NSave) != sim.Chains {
		return nil, fmt.Errorf("%w: n_save has %d entries for %d chains",
			ErrMalformedSimulation, len(sim.NSave), sim.Chains)
	}
	if len(sim.Warmup2) != sim.Chains {
		return nil, fmt.Errorf("%w: warmup2 has %d entries for %d chains",
			ErrMalformedSimulation, len(sim.Warmup2), sim.Chains)
	}
	if len(sim.Samples) != sim.Chains {
		return nil, fmt.Errorf("%w: samples has %d entries for %d chains",
			ErrMalformedSimulation, len(sim.Samples), sim.Chains)
	}
	if len(sim.Parameters) == 0 {
		return nil, fmt.Errorf("%w: no parameters", ErrMalformedSimulation)
	}

	for k := 0; k < sim.Chains; k++ {
		if sim.NSave[k] < 0 {
			return nil, fmt.Errorf("%w: chain %d has negative n_save %d",
				ErrMalformedSimulation, k, sim.NSave[k])
		}
		if sim.Warmup2[k] < 0 || sim.Warmup2[k] > sim.NSave[k] {
			return nil, fmt.Errorf("%w: chain %d warmup2 %d outside [0, %d]",
				ErrMalformedSimulation, k, sim.Warmup2[k], sim.NSave[k])
		}
		if sim.Samples[k] == nil {
			return nil, fmt.Errorf("%w: chain %d has no samples", ErrMalformedSimulation, k)
		}
		for _, name := range sim.Parameters {
			draws, ok := sim.Samples[k][name]
			if !ok {
				return nil, fmt.Errorf("%w: chain %d missing parameter %q",
					ErrMalformedSimulation, k, name)
			}
			if len(draws) != sim.NSave[k] {
				return nil, fmt.Errorf("%w: chain %d parameter %q has %d draws, n_save is %d",
					ErrMalformedSimulation, k, name, len(draws), sim.NSave[k])
			}
		}
	}

	return &sim, nil
}

// paramName resolves a parameter index to its name.
func (s *Simulation) paramName(param int) (string, error) {
	if param < 0 || param >= len(s.Parameters) {
		return "", fmt.Errorf("%w: %d not in [0, %d)", ErrParamOutOfRange, param, len(s.Parameters))
	}
	return s.Parameters[param], nil
}

// checkChain validates a chain index.
func (s *Simulation) checkChain(chain int) error {
	if chain < 0 || chain >= s.Chains {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrChainOutOfRange, chain, s.Chains)
	}
	return nil
}

// keptLen returns the post-warmup draw count for a chain.
func (s *Simulation) keptLen(chain int) int {
	return s.NSave[chain] - s.Warmup2[chain]
}

// minKept returns the smallest post-warmup draw count across chains.
// Chains are truncated to this common length when variances are
// pooled.
func (s *Simulation) minKept() int {
	min := s.keptLen(0)
	for k := 1; k < s.Chains; k++ {
		if n := s.keptLen(k); n < min {
			min = n
		}
	}
	return min
}
