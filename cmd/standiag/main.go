// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command standiag computes MCMC convergence diagnostics from chain
// CSV files.
//
// Usage:
//
//	# One-shot check over finished chains
//	standiag check chain0.csv chain1.csv chain2.csv chain3.csv
//
//	# With warmup trimming and thresholds from a config file
//	standiag check --config standiag.yaml chain*.csv
//
//	# Monitor a live sampler run, exporting Prometheus metrics
//	standiag watch --dir ./output --listen :9464
//
// check exits non-zero when any parameter fails the configured split
// R-hat threshold or ESS floor, so it can gate pipelines.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mmngreco/pystan/pkg/logging"
)

// Config is the optional YAML configuration shared by all commands.
type Config struct {
	// Warmup is the number of leading draws to discard per chain. A
	// single entry is broadcast to every chain.
	Warmup []int `yaml:"warmup"`

	// RhatThreshold flags parameters whose split R-hat exceeds it.
	RhatThreshold float64 `yaml:"rhat_threshold"`

	// ESSFloor flags parameters whose ESS falls below it. Zero
	// disables the check.
	ESSFloor float64 `yaml:"ess_floor"`

	// Workers bounds concurrent parameter evaluation. Zero uses the
	// CPU count.
	Workers int `yaml:"workers"`

	Log struct {
		// Level is debug, info, warn, or error.
		Level string `yaml:"level"`
		// Dir enables file logging.
		Dir string `yaml:"dir"`
		// JSON switches stderr logs to JSON.
		JSON bool `yaml:"json"`
	} `yaml:"log"`

	Watch struct {
		// Debounce is how long to wait after a file change before
		// rescoring.
		Debounce time.Duration `yaml:"debounce"`
		// Listen is the Prometheus metrics address.
		Listen string `yaml:"listen"`
	} `yaml:"watch"`
}

func defaultConfig() Config {
	var c Config
	c.RhatThreshold = 1.1
	c.Log.Level = "info"
	c.Watch.Debounce = 2 * time.Second
	c.Watch.Listen = ":9464"
	return c
}

var (
	configPath string
	config     = defaultConfig()
	logger     = logging.Default()
)

var rootCmd = &cobra.Command{
	Use:          "standiag",
	Short:        "Convergence diagnostics (ESS, split R-hat) for MCMC chain output",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			raw, err := os.ReadFile(configPath)
			if err != nil {
				return fmt.Errorf("read config: %w", err)
			}
			if err := yaml.Unmarshal(raw, &config); err != nil {
				return fmt.Errorf("parse config: %w", err)
			}
		}

		level, err := parseLevel(config.Log.Level)
		if err != nil {
			return err
		}
		logger, err = logging.New(logging.Config{
			Level:   level,
			LogDir:  config.Log.Dir,
			Service: "standiag",
			JSON:    config.Log.JSON,
		})
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		return nil
	}
}

func parseLevel(s string) (logging.Level, error) {
	switch s {
	case "", "info":
		return logging.LevelInfo, nil
	case "debug":
		return logging.LevelDebug, nil
	case "warn":
		return logging.LevelWarn, nil
	case "error":
		return logging.LevelError, nil
	default:
		return logging.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
