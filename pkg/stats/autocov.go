// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stats

import (
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// Autocovariance returns the biased sample autocovariance of the
// sequence at every lag.
//
// Description:
//
//	For a sequence of length L the result has length L, where entry t
//	is
//
//	    acov[t] = (1/L) * sum_{i=0}^{L-1-t} (x[i] - mean) * (x[i+t] - mean)
//
//	Every lag uses denominator L (the biased convention), so acov[0]
//	equals the population variance. The computation is FFT-based
//	(O(L log L)): the centered sequence is zero-padded to avoid
//	circular wrap-around, transformed, converted to a power spectrum,
//	and transformed back.
//
// Inputs:
//   - xs: Sequence to analyze. Must have at least 2 elements.
//
// Outputs:
//   - []float64: Autocovariance at lags 0..L-1. Never nil on success.
//   - error: ErrTooFewSamples if xs has fewer than 2 elements.
//
// Thread Safety: Stateless function; safe for concurrent use.
func Autocovariance(xs []float64) ([]float64, error) {
	n := len(xs)
	if n < 2 {
		return nil, ErrTooFewSamples
	}

	mean := stat.Mean(xs, nil)

	// Pad to at least 2n so the circular correlation of the padded
	// sequence equals the linear correlation at lags 0..n-1.
	padded := make([]float64, nextPow2(2*n))
	for i, x := range xs {
		padded[i] = x - mean
	}

	fft := fourier.NewFFT(len(padded))
	coeff := fft.Coefficients(nil, padded)

	// Power spectrum: |c_k|^2 is real and symmetric, so the inverse
	// transform is real-valued.
	for i, c := range coeff {
		coeff[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}

	// Sequence is unnormalized: it returns len(padded) times the
	// inverse transform, which itself is the raw lag product sum.
	seq := fft.Sequence(nil, coeff)

	acov := make([]float64, n)
	norm := float64(len(padded)) * float64(n)
	for t := range acov {
		acov[t] = seq[t] / norm
	}
	return acov, nil
}

// nextPow2 returns the smallest power of two >= n.
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
