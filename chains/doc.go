// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package chains computes convergence diagnostics for Markov-chain
// Monte Carlo output: effective sample size (ESS) and the split
// potential scale reduction factor (split R-hat).
//
// # Architecture
//
// Both diagnostics are pure functions over an immutable Simulation
// snapshot, composed from one extraction routine and the numerical
// primitives in pkg/stats:
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                          Simulation                             │
//	│   chains, n_save[], warmup2[], per-chain parameter draws        │
//	└───────────────┬─────────────────────────────────────────────────┘
//	                │
//	                ▼
//	        KeptSamples / ChainMean          (warmup trimming)
//	                │
//	      ┌─────────┴──────────┐
//	      ▼                    ▼
//	 Autocovariance      half-chain split
//	      │                    │
//	      ▼                    ▼
//	 EffectiveSampleSize  SplitPotentialScaleReduction
//	      │                    │
//	      ▼                    ▼
//	    float64              float64
//
// # Methodology
//
// EffectiveSampleSize implements the BDA3 whole-chain estimator: the
// per-chain autocovariance functions are pooled into a lag
// autocorrelation sequence rho_hat(t), which is summed from lag 0
// until the first negative value (a simplified initial positive
// sequence truncation). The ESS is m*N / (1 + 2*sum(rho_hat)).
//
// SplitPotentialScaleReduction splits every chain into two contiguous
// halves, treats the 2m halves as independent pseudo-chains, and
// compares between-half and within-half variance:
//
//	srhat = sqrt((B/W + N/2 - 1) / (N/2))
//
// Values near 1.0 indicate the chains have mixed; larger values
// indicate non-convergence.
//
// # Error Handling
//
// Three failure classes are distinguished by sentinel errors:
//
//   - ErrInsufficientSamples: too few post-warmup draws for the
//     requested diagnostic (N < 2 for ESS, N < 4 for split R-hat).
//   - ErrZeroVariance: the diagnostic is numerically undefined, e.g.
//     constant chains. Callers should treat the parameter as
//     unscoreable rather than fail a whole batch.
//   - ErrChainOutOfRange, ErrParamOutOfRange, ErrMalformedSimulation:
//     structural problems in the caller's data assembly.
//
// # Thread Safety
//
// All methods are pure and hold no state across calls. Concurrent
// invocations over the same Simulation are safe as long as the
// snapshot is not mutated while diagnostics run.
package chains
