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
	"math"

	"github.com/mmngreco/pystan/pkg/stats"
)

// SplitPotentialScaleReduction estimates split R-hat for one parameter.
//
// Description:
//
//	Every chain's post-warmup draws are truncated to the common even
//	length N (odd N is decremented so both halves are equal-sized) and
//	split into two contiguous halves, yielding 2m pseudo-chains of
//	length N/2. Between-half variance B and within-half variance W
//	combine into
//
//	    srhat = sqrt((B/W + N/2 - 1) / (N/2)).
//
//	Values near 1.0 indicate the chains agree on location and scale;
//	larger values indicate non-convergence. That reading is an
//	interpretive property, not an enforced postcondition.
//
// Inputs:
//   - param: Parameter index into the common ordering.
//
// Outputs:
//   - float64: A finite positive estimate under well-conditioned input.
//   - error: ErrInsufficientSamples if N < 4 (half-chain variance
//     undefined), ErrZeroVariance if the within-half variance is zero,
//     or an index error.
//
// Thread Safety: Pure function of the snapshot; safe for concurrent use.
func (s *Simulation) SplitPotentialScaleReduction(param int) (float64, error) {
	if _, err := s.paramName(param); err != nil {
		return 0, err
	}

	n := s.minKept()
	if n%2 == 1 {
		n--
	}
	if n < 4 {
		return 0, fmt.Errorf("%w: need at least 4 post-warmup draws per chain for split halves", ErrInsufficientSamples)
	}
	half := n / 2

	halfMeans := make([]float64, 0, 2*s.Chains)
	halfVars := make([]float64, 0, 2*s.Chains)
	for k := 0; k < s.Chains; k++ {
		kept, err := s.KeptSamples(k, param)
		if err != nil {
			return 0, err
		}
		for _, segment := range [][]float64{kept[:half], kept[half:n]} {
			mean, err := stats.Mean(segment)
			if err != nil {
				return 0, err
			}
			variance, err := stats.Variance(segment)
			if err != nil {
				return 0, err
			}
			halfMeans = append(halfMeans, mean)
			halfVars = append(halfVars, variance)
		}
	}

	meansVar, err := stats.Variance(halfMeans)
	if err != nil {
		return 0, err
	}
	varBetween := float64(half) * meansVar

	varWithin, err := stats.Mean(halfVars)
	if err != nil {
		return 0, err
	}
	if varWithin == 0 {
		return 0, ErrZeroVariance
	}

	h := float64(half)
	return math.Sqrt((varBetween/varWithin + h - 1) / h), nil
}
