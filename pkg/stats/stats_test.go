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
	"errors"
	"math"
	"math/rand"
	"testing"
)

// -----------------------------------------------------------------------------
// Scalar Primitive Tests
// -----------------------------------------------------------------------------

func TestSum(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		got, err := Sum([]float64{1, 2, 3, 4})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 10 {
			t.Errorf("expected 10, got %v", got)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Sum(nil)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("expected ErrEmptyInput, got %v", err)
		}
	})
}

func TestMean(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		got, err := Mean([]float64{1, 2, 3, 4, 5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 3 {
			t.Errorf("expected 3, got %v", got)
		}
	})

	t.Run("single element", func(t *testing.T) {
		got, err := Mean([]float64{7.5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 7.5 {
			t.Errorf("expected 7.5, got %v", got)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Mean([]float64{})
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("expected ErrEmptyInput, got %v", err)
		}
	})
}

func TestVariance(t *testing.T) {
	t.Run("uses n-1 denominator", func(t *testing.T) {
		// Sum of squared deviations is 10, n-1 is 4.
		got, err := Variance([]float64{1, 2, 3, 4, 5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(got-2.5) > 1e-12 {
			t.Errorf("expected 2.5, got %v", got)
		}
	})

	t.Run("constant sequence", func(t *testing.T) {
		got, err := Variance([]float64{4, 4, 4})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 0 {
			t.Errorf("expected 0 variance, got %v", got)
		}
	})

	t.Run("too few samples", func(t *testing.T) {
		_, err := Variance([]float64{1})
		if !errors.Is(err, ErrTooFewSamples) {
			t.Errorf("expected ErrTooFewSamples, got %v", err)
		}
	})
}

// -----------------------------------------------------------------------------
// Autocovariance Tests
// -----------------------------------------------------------------------------

// bruteAutocovariance is the direct O(L^2) definition used to verify
// the FFT implementation.
func bruteAutocovariance(xs []float64) []float64 {
	n := len(xs)
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(n)

	acov := make([]float64, n)
	for t := 0; t < n; t++ {
		var sum float64
		for i := 0; i+t < n; i++ {
			sum += (xs[i] - mean) * (xs[i+t] - mean)
		}
		acov[t] = sum / float64(n)
	}
	return acov
}

func TestAutocovariance(t *testing.T) {
	t.Run("lag zero is population variance", func(t *testing.T) {
		xs := []float64{1, 2, 3, 4, 5}
		acov, err := Autocovariance(xs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(acov) != len(xs) {
			t.Fatalf("expected length %d, got %d", len(xs), len(acov))
		}
		// Population variance of 1..5 is 2 (denominator 5).
		if math.Abs(acov[0]-2) > 1e-10 {
			t.Errorf("expected acov[0]=2, got %v", acov[0])
		}
	})

	t.Run("matches direct computation", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		for _, n := range []int{2, 3, 5, 16, 17, 100, 257} {
			xs := make([]float64, n)
			for i := range xs {
				xs[i] = rng.NormFloat64()
			}

			got, err := Autocovariance(xs)
			if err != nil {
				t.Fatalf("n=%d: unexpected error: %v", n, err)
			}
			want := bruteAutocovariance(xs)
			for lag := range want {
				if math.Abs(got[lag]-want[lag]) > 1e-9 {
					t.Fatalf("n=%d lag=%d: got %v, want %v", n, lag, got[lag], want[lag])
				}
			}
		}
	})

	t.Run("constant sequence is zero at all lags", func(t *testing.T) {
		acov, err := Autocovariance([]float64{3, 3, 3, 3})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for lag, v := range acov {
			if math.Abs(v) > 1e-12 {
				t.Errorf("lag %d: expected 0, got %v", lag, v)
			}
		}
	})

	t.Run("too few samples", func(t *testing.T) {
		_, err := Autocovariance([]float64{1})
		if !errors.Is(err, ErrTooFewSamples) {
			t.Errorf("expected ErrTooFewSamples, got %v", err)
		}
	})
}
