// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmngreco/pystan/chainfile"
	"github.com/mmngreco/pystan/chains"
	"github.com/mmngreco/pystan/diagnose"
)

var checkWarmup int

var checkCmd = &cobra.Command{
	Use:   "check [chain.csv ...]",
	Short: "Score finished chains and fail on non-convergence",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().IntVar(&checkWarmup, "warmup", -1,
		"warmup draws to discard per chain (overrides config)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	sim, err := loadSimulation(args)
	if err != nil {
		return err
	}
	logger.Info("chains loaded",
		"chains", sim.Chains,
		"parameters", len(sim.Parameters),
	)

	report, err := diagnose.Run(cmd.Context(), sim, diagnose.Options{
		RhatThreshold: config.RhatThreshold,
		ESSFloor:      config.ESSFloor,
		Workers:       config.Workers,
	})
	if err != nil {
		return err
	}

	renderReport(cmd.OutOrStdout(), report)

	if n := report.Degenerate(); n > 0 {
		logger.Warn("degenerate parameters skipped", "count", n)
	}
	if !report.Converged() {
		return fmt.Errorf("%d parameter(s) above split R-hat %.3g, %d below ESS floor %.6g",
			report.RhatExceeded(), report.RhatThreshold,
			report.ESSBelow(), report.ESSFloor)
	}
	return nil
}

// loadSimulation parses one CSV per chain and assembles the snapshot,
// applying the warmup flag or config.
func loadSimulation(paths []string) (*chains.Simulation, error) {
	parsed := make([]*chainfile.ChainData, 0, len(paths))
	for _, path := range paths {
		data, err := chainfile.Load(path)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, data)
	}

	warmup := config.Warmup
	if checkWarmup >= 0 {
		warmup = []int{checkWarmup}
	}
	return chainfile.Assemble(parsed, warmup)
}

// renderReport prints one row per parameter.
func renderReport(w io.Writer, report *diagnose.Report) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "PARAMETER\tESS\tSPLIT_RHAT\tSTATUS")
	for _, res := range report.Results {
		if res.Degenerate {
			fmt.Fprintf(tw, "%s\tn/a\tn/a\tdegenerate\n", res.Name)
			continue
		}
		fmt.Fprintf(tw, "%s\t%.1f\t%.4f\t%s\n", res.Name, res.ESS, res.SplitRhat, status(report, res))
	}
	tw.Flush()
}

func status(report *diagnose.Report, res diagnose.ParameterResult) string {
	switch {
	case math.IsNaN(res.SplitRhat):
		return "degenerate"
	case res.SplitRhat > report.RhatThreshold:
		return "rhat high"
	case report.ESSFloor > 0 && res.ESS < report.ESSFloor:
		return "ess low"
	default:
		return "ok"
	}
}
