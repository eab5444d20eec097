// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package chainfile loads sampler output into a chains.Simulation.
//
// Each chain is one CSV file: a header row of parameter names followed
// by one row per draw. Lines starting with '#' are comments (the Stan
// CSV convention for adaptation and timing annotations) and are
// skipped.
package chainfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mmngreco/pystan/chains"
)

var (
	// ErrNoChains indicates an empty chain set was assembled.
	ErrNoChains = errors.New("no chain files provided")

	// ErrEmptyFile indicates a chain file had a header but no draws.
	ErrEmptyFile = errors.New("chain file contains no draws")

	// ErrHeaderMismatch indicates the chain files disagree on the
	// parameter header.
	ErrHeaderMismatch = errors.New("chain files disagree on parameter header")

	// ErrBadWarmup indicates the warmup setting cannot be applied to
	// the chain set.
	ErrBadWarmup = errors.New("invalid warmup setting")
)

// ChainData holds one chain's parsed draws.
type ChainData struct {
	// Name identifies the source, usually the file path.
	Name string

	// Parameters is the header order.
	Parameters []string

	// Draws maps parameter name to its draw sequence. All sequences
	// have length NumDraws.
	Draws map[string][]float64

	// NumDraws is the number of data rows.
	NumDraws int
}

// Load reads and parses a single chain CSV file.
func Load(path string) (*ChainData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chain file: %w", err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads a chain CSV from r. The name is used in error messages
// and stored as ChainData.Name.
//
// Inputs:
//   - r: CSV input, header row first. '#' lines are skipped.
//   - name: Source identifier for diagnostics.
//
// Outputs:
//   - *ChainData: Parsed chain. Never nil on success.
//   - error: ErrEmptyFile, or a parse error with file/line context.
func Parse(r io.Reader, name string) (*ChainData, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyFile)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}

	data := &ChainData{
		Name:       name,
		Parameters: header,
		Draws:      make(map[string][]float64, len(header)),
	}
	for _, p := range header {
		data.Draws[p] = nil
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		// csv.Reader enforces uniform field counts against the header.
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				line, _ := cr.FieldPos(i)
				return nil, fmt.Errorf("%s:%d: parse %q for %q: %w", name, line, field, header[i], err)
			}
			data.Draws[header[i]] = append(data.Draws[header[i]], v)
		}
		data.NumDraws++
	}

	if data.NumDraws == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyFile)
	}
	return data, nil
}

// Assemble builds a validated Simulation from per-chain data.
//
// Description:
//
//	All chains must agree on the parameter header, in order. The
//	warmup slice may hold one entry per chain, or a single entry that
//	is broadcast to every chain; nil means no warmup trimming.
//
// Inputs:
//   - cs: Parsed chains, one per file. Must be non-empty.
//   - warmup: Per-chain warmup draw counts, a single broadcast value,
//     or nil.
//
// Outputs:
//   - *chains.Simulation: Validated snapshot.
//   - error: ErrNoChains, ErrHeaderMismatch, ErrBadWarmup, or a
//     validation error from chains.NewSimulation.
func Assemble(cs []*ChainData, warmup []int) (*chains.Simulation, error) {
	if len(cs) == 0 {
		return nil, ErrNoChains
	}

	first := cs[0].Parameters
	for _, c := range cs[1:] {
		if !equalHeaders(first, c.Parameters) {
			return nil, fmt.Errorf("%w: %s vs %s", ErrHeaderMismatch, cs[0].Name, c.Name)
		}
	}

	perChain, err := broadcastWarmup(warmup, len(cs))
	if err != nil {
		return nil, err
	}

	sim := chains.Simulation{
		Chains:     len(cs),
		NSave:      make([]int, len(cs)),
		Warmup2:    perChain,
		Parameters: first,
		Samples:    make([]map[string][]float64, len(cs)),
	}
	for k, c := range cs {
		if perChain[k] > c.NumDraws {
			return nil, fmt.Errorf("%w: warmup %d exceeds %d draws in %s",
				ErrBadWarmup, perChain[k], c.NumDraws, c.Name)
		}
		sim.NSave[k] = c.NumDraws
		sim.Samples[k] = c.Draws
	}

	return chains.NewSimulation(sim)
}

func equalHeaders(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func broadcastWarmup(warmup []int, numChains int) ([]int, error) {
	perChain := make([]int, numChains)
	switch len(warmup) {
	case 0:
		// No trimming.
	case 1:
		for k := range perChain {
			perChain[k] = warmup[0]
		}
	case numChains:
		copy(perChain, warmup)
	default:
		return nil, fmt.Errorf("%w: %d warmup entries for %d chains", ErrBadWarmup, len(warmup), numChains)
	}
	for k, w := range perChain {
		if w < 0 {
			return nil, fmt.Errorf("%w: chain %d warmup %d < 0", ErrBadWarmup, k, w)
		}
	}
	return perChain, nil
}
