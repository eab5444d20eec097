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

// EffectiveSampleSize estimates the effective sample size of one
// parameter across all chains.
//
// Description:
//
//	Implements the BDA3 whole-chain ESS estimator. Each chain's
//	autocovariance is computed over its own full post-warmup sequence;
//	chains are then truncated to the common length N = min_k n_kept[k]
//	for variance pooling (excess tail draws on longer chains are
//	dropped for this computation only). The pooled within-chain
//	variance and the between-chain variance of the chain means form
//	the marginal posterior variance estimate var_plus; the lag
//	autocorrelations
//
//	    rho_hat(t) = 1 - (mean_var - mean_k acov[k][t]) / var_plus
//
//	are summed from lag 0 until the first negative value or lag N,
//	and the result is
//
//	    ess = m*N / (1 + 2 * sum(rho_hat)).
//
//	The first-negative cutoff is a simplified initial positive
//	sequence truncation. More robust estimators pair consecutive lags
//	before truncating; this implementation keeps the simple cutoff
//	for numeric reproducibility with existing consumers.
//
// Inputs:
//   - param: Parameter index into the common ordering.
//
// Outputs:
//   - float64: A finite non-negative estimate. Usually at most m*N,
//     but that bound is not enforced under pathological negative
//     autocorrelation.
//   - error: ErrInsufficientSamples if N < 2, ErrZeroVariance if the
//     pooled variance is zero (constant chains), or an index error.
//
// Thread Safety: Pure function of the snapshot; safe for concurrent use.
func (s *Simulation) EffectiveSampleSize(param int) (float64, error) {
	if _, err := s.paramName(param); err != nil {
		return 0, err
	}

	m := s.Chains
	n := s.minKept()
	if n < 2 {
		return 0, fmt.Errorf("%w: need at least 2 post-warmup draws per chain, have %d", ErrInsufficientSamples, n)
	}

	acovs := make([][]float64, m)
	chainMeans := make([]float64, m)
	chainVars := make([]float64, m)
	for k := 0; k < m; k++ {
		acov, err := s.Autocovariance(k, param)
		if err != nil {
			return 0, err
		}
		mean, err := s.ChainMean(k, param)
		if err != nil {
			return 0, err
		}

		nKept := float64(s.keptLen(k))
		acovs[k] = acov
		chainMeans[k] = mean
		// Bias correction from population to sample variance.
		chainVars[k] = acov[0] * nKept / (nKept - 1)
	}

	meanVar, err := stats.Mean(chainVars)
	if err != nil {
		return 0, err
	}

	varPlus := meanVar * float64(n-1) / float64(n)
	if m > 1 {
		between, err := stats.Variance(chainMeans)
		if err != nil {
			return 0, err
		}
		varPlus += between
	}
	if varPlus == 0 {
		return 0, ErrZeroVariance
	}

	meanAcov := make([]float64, n)
	for t := 0; t < n; t++ {
		var sum float64
		for k := 0; k < m; k++ {
			sum += acovs[k][t]
		}
		meanAcov[t] = sum / float64(m)
	}

	rhoSum, lags := rhoHatSum(meanAcov, meanVar, varPlus, n)

	ess := float64(m * n)
	if lags > 0 {
		ess /= 1 + 2*rhoSum
	}
	return ess, nil
}

// rhoHatSum accumulates lag autocorrelation estimates from lag 0,
// stopping at the first negative value (excluded) or at lag n.
//
// Outputs:
//   - float64: Sum of the accumulated rho_hat values.
//   - int: Number of lags accumulated.
func rhoHatSum(meanAcov []float64, meanVar, varPlus float64, n int) (float64, int) {
	var sum float64
	lags := 0
	for t := 0; t < n; t++ {
		rho := 1 - (meanVar-meanAcov[t])/varPlus
		if rho < 0 {
			break
		}
		sum += rho
		lags++
	}
	return sum, lags
}
