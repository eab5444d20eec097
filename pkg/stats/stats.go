// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stats provides the numerical primitives used by the chain
// diagnostics: sums, means, sample variances, and the biased sample
// autocovariance function.
//
// The package is a thin, validated layer over Gonum. Callers that have
// already checked their preconditions can rely on the primitives never
// returning NaN for valid input; callers that have not get an explicit
// error instead of a silent NaN.
//
// # Conventions
//
//   - Variance uses the unbiased estimator (denominator n-1) and is
//     undefined for fewer than two samples.
//   - Autocovariance uses the biased estimator (denominator L at every
//     lag), so acov[0] is the population variance. This matches the
//     convention used by the ESS computation in the chains package.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package stats

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrEmptyInput indicates a statistic was requested for an empty sequence.
	ErrEmptyInput = errors.New("statistic undefined for empty sequence")

	// ErrTooFewSamples indicates a statistic needs at least two samples.
	ErrTooFewSamples = errors.New("statistic requires at least two samples")
)

// -----------------------------------------------------------------------------
// Primitives
// -----------------------------------------------------------------------------

// Sum returns the sum of the sequence.
//
// Inputs:
//   - xs: Sequence to sum. Must have at least 1 element.
//
// Outputs:
//   - float64: The sum.
//   - error: ErrEmptyInput if xs is empty.
func Sum(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmptyInput
	}
	return floats.Sum(xs), nil
}

// Mean returns the arithmetic mean of the sequence.
//
// Inputs:
//   - xs: Sequence to average. Must have at least 1 element.
//
// Outputs:
//   - float64: The mean.
//   - error: ErrEmptyInput if xs is empty.
func Mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmptyInput
	}
	return stat.Mean(xs, nil), nil
}

// Variance returns the unbiased sample variance (denominator n-1).
//
// Inputs:
//   - xs: Sequence to measure. Must have at least 2 elements.
//
// Outputs:
//   - float64: The sample variance. Zero for a constant sequence.
//   - error: ErrTooFewSamples if xs has fewer than 2 elements.
func Variance(xs []float64) (float64, error) {
	if len(xs) < 2 {
		return 0, ErrTooFewSamples
	}
	return stat.Variance(xs, nil), nil
}
