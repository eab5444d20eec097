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
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestSplitPotentialScaleReduction(t *testing.T) {
	t.Run("hand-computed example", func(t *testing.T) {
		// Kept draws [1..5] and [5..1]; N = 5 is decremented to 4, so
		// the halves are [1,2],[3,4],[5,4],[3,2] with means
		// 1.5, 3.5, 4.5, 2.5 (sample variance 5/3) and variance 0.5
		// each. B = 2 * 5/3, W = 0.5, so
		// srhat = sqrt((B/W + 1) / 2) = sqrt(23/6).
		sim := newTestSim(t, 5,
			[]float64{1, 2, 3, 4, 5},
			[]float64{5, 4, 3, 2, 1},
		)

		srhat, err := sim.SplitPotentialScaleReduction(0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := math.Sqrt(23.0 / 6.0)
		if math.Abs(srhat-want) > 1e-12 {
			t.Errorf("expected %v, got %v", want, srhat)
		}
	})

	t.Run("odd N drops one trailing draw", func(t *testing.T) {
		rng := rand.New(rand.NewSource(31))
		a := make([]float64, 7)
		b := make([]float64, 7)
		for i := range a {
			a[i] = rng.NormFloat64()
			b[i] = rng.NormFloat64()
		}

		srhatOdd, err := newTestSim(t, 0, a, b).SplitPotentialScaleReduction(0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		srhatEven, err := newTestSim(t, 0, a[:6], b[:6]).SplitPotentialScaleReduction(0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if srhatOdd != srhatEven {
			t.Errorf("N=7 must match explicit N=6 truncation: %v vs %v", srhatOdd, srhatEven)
		}
	})

	t.Run("iid chains converge toward 1", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		draws := make([][]float64, 4)
		for k := range draws {
			draws[k] = make([]float64, 10000)
			for i := range draws[k] {
				draws[k][i] = rng.NormFloat64()
			}
		}

		sim := newTestSim(t, 0, draws...)
		srhat, err := sim.SplitPotentialScaleReduction(0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(srhat-1) > 0.1 {
			t.Errorf("expected srhat within 0.1 of 1 for iid chains, got %v", srhat)
		}
	})

	t.Run("constant chains are degenerate", func(t *testing.T) {
		sim := newTestSim(t, 0,
			[]float64{2, 2, 2, 2},
			[]float64{2, 2, 2, 2},
		)
		if _, err := sim.SplitPotentialScaleReduction(0); !errors.Is(err, ErrZeroVariance) {
			t.Errorf("expected ErrZeroVariance, got %v", err)
		}
	})

	t.Run("too few kept draws", func(t *testing.T) {
		sim := newTestSim(t, 0, []float64{1, 2, 3})
		if _, err := sim.SplitPotentialScaleReduction(0); !errors.Is(err, ErrInsufficientSamples) {
			t.Errorf("expected ErrInsufficientSamples, got %v", err)
		}
	})

	t.Run("parameter out of range", func(t *testing.T) {
		sim := newTestSim(t, 0, []float64{1, 2, 3, 4})
		if _, err := sim.SplitPotentialScaleReduction(-1); !errors.Is(err, ErrParamOutOfRange) {
			t.Errorf("expected ErrParamOutOfRange, got %v", err)
		}
	})
}
