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

import (
	"fmt"

	"github.com/mmngreco/pystan/pkg/stats"
)

// KeptSamples returns the post-warmup draws for one chain/parameter.
//
// Description:
//
//	Looks up the raw draw sequence for (chain, param) and returns the
//	suffix after discarding the first Warmup2[chain] entries. The
//	result is an independent copy; callers are free to mutate it.
//
// Inputs:
//   - chain: Chain index in [0, Chains).
//   - param: Parameter index into the common ordering.
//
// Outputs:
//   - []float64: Copy of the kept draws. May be empty if warmup
//     consumed the whole chain.
//   - error: ErrChainOutOfRange or ErrParamOutOfRange on a bad index.
//
// Thread Safety: Pure function of the snapshot; safe for concurrent use.
func (s *Simulation) KeptSamples(chain, param int) ([]float64, error) {
	if err := s.checkChain(chain); err != nil {
		return nil, err
	}
	name, err := s.paramName(param)
	if err != nil {
		return nil, err
	}

	draws := s.Samples[chain][name]
	kept := make([]float64, len(draws)-s.Warmup2[chain])
	copy(kept, draws[s.Warmup2[chain]:])
	return kept, nil
}

// ChainMean returns the arithmetic mean of the kept draws for one
// chain/parameter.
//
// Inputs:
//   - chain: Chain index in [0, Chains).
//   - param: Parameter index into the common ordering.
//
// Outputs:
//   - float64: Mean of the post-warmup draws.
//   - error: ErrInsufficientSamples (wrapped) if warmup consumed the
//     whole chain, or an index error.
//
// Thread Safety: Pure function of the snapshot; safe for concurrent use.
func (s *Simulation) ChainMean(chain, param int) (float64, error) {
	kept, err := s.KeptSamples(chain, param)
	if err != nil {
		return 0, err
	}
	mean, err := stats.Mean(kept)
	if err != nil {
		return 0, fmt.Errorf("%w: chain %d has no post-warmup draws", ErrInsufficientSamples, chain)
	}
	return mean, nil
}

// Autocovariance returns the autocovariance function of the kept
// draws for one chain/parameter.
//
// Description:
//
//	Thin adapter over stats.Autocovariance: extraction then
//	delegation. It exists as an explicit seam so the autocovariance
//	algorithm can be swapped without touching the calculators.
//
// Inputs:
//   - chain: Chain index in [0, Chains).
//   - param: Parameter index into the common ordering.
//
// Outputs:
//   - []float64: Biased autocovariance at lags 0..n_kept-1.
//   - error: ErrInsufficientSamples (wrapped) if fewer than 2 draws
//     remain after warmup, or an index error.
//
// Thread Safety: Pure function of the snapshot; safe for concurrent use.
func (s *Simulation) Autocovariance(chain, param int) ([]float64, error) {
	kept, err := s.KeptSamples(chain, param)
	if err != nil {
		return nil, err
	}
	acov, err := stats.Autocovariance(kept)
	if err != nil {
		return nil, fmt.Errorf("%w: chain %d has %d post-warmup draws", ErrInsufficientSamples, chain, len(kept))
	}
	return acov, nil
}
