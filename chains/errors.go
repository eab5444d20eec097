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

import "errors"

var (
	// ErrInsufficientSamples indicates too few post-warmup draws for
	// the requested diagnostic.
	ErrInsufficientSamples = errors.New("insufficient samples for convergence diagnostic")

	// ErrZeroVariance indicates the diagnostic is numerically
	// undefined because the pooled variance is zero (constant chains).
	ErrZeroVariance = errors.New("chains have zero variance")

	// ErrChainOutOfRange indicates a chain index outside [0, Chains).
	ErrChainOutOfRange = errors.New("chain index out of range")

	// ErrParamOutOfRange indicates a parameter index outside the
	// common parameter ordering.
	ErrParamOutOfRange = errors.New("parameter index out of range")

	// ErrMalformedSimulation indicates the simulation snapshot is
	// structurally inconsistent (missing fields, mismatched lengths).
	ErrMalformedSimulation = errors.New("malformed simulation snapshot")
)
