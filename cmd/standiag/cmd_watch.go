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
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mmngreco/pystan/chainfile"
	"github.com/mmngreco/pystan/diagnose"
	"github.com/mmngreco/pystan/telemetry"
)

var watchDir string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor a directory of chain CSVs and export diagnostics as Prometheus metrics",
	Long: `watch rescoring loop for a live sampler run.

The directory is watched for changes to *.csv files. After a quiet
period (debounce) the chains are reloaded, diagnostics recomputed,
and the results exported on the metrics endpoint. Scrape
/metrics on the listen address.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", ".", "directory containing chain CSV files")
	watchCmd.Flags().StringVar(&config.Watch.Listen, "listen", config.Watch.Listen,
		"address for the Prometheus metrics endpoint")
	watchCmd.Flags().DurationVar(&config.Watch.Debounce, "debounce", config.Watch.Debounce,
		"quiet period after a file change before rescoring")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	sinkConfig := telemetry.DefaultPrometheusConfig()
	sinkConfig.Registry = registry
	sink, err := telemetry.NewPrometheusSink(sinkConfig)
	if err != nil {
		return err
	}
	defer sink.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(watchDir); err != nil {
		return fmt.Errorf("watch %s: %w", watchDir, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: config.Watch.Listen, Handler: mux}
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	logger.Info("watching sampler output",
		"dir", watchDir,
		"listen", config.Watch.Listen,
		"debounce", config.Watch.Debounce,
	)

	// Score whatever is already on disk before the first change.
	rescore(ctx, sink)

	err = watchLoop(ctx, watcher, serverErr, func() { rescore(ctx, sink) })

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	return err
}

// watchLoop debounces CSV change events and invokes onQuiet after the
// configured quiet period. Returns when ctx is done or a fatal error
// occurs.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, serverErr <-chan error, onQuiet func()) error {
	debounce := time.NewTimer(config.Watch.Debounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-serverErr:
			return fmt.Errorf("metrics endpoint: %w", err)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("chain file changed", "file", event.Name, "op", event.Op.String())
			debounce.Reset(config.Watch.Debounce)
		case <-debounce.C:
			onQuiet()
		}
	}
}

// rescore reloads every chain CSV in the watched directory and
// recomputes diagnostics into the sink. Failures are logged, not
// fatal: a sampler mid-write produces transient parse errors.
func rescore(ctx context.Context, sink telemetry.Sink) {
	paths, err := filepath.Glob(filepath.Join(watchDir, "*.csv"))
	if err != nil {
		logger.Error("glob chain files", "error", err)
		return
	}
	if len(paths) == 0 {
		logger.Warn("no chain files found", "dir", watchDir)
		return
	}
	sort.Strings(paths)

	parsed := make([]*chainfile.ChainData, 0, len(paths))
	for _, path := range paths {
		data, err := chainfile.Load(path)
		if err != nil {
			logger.Warn("skipping unreadable chain file", "file", path, "error", err)
			continue
		}
		parsed = append(parsed, data)
	}

	sim, err := chainfile.Assemble(parsed, config.Warmup)
	if err != nil {
		logger.Warn("cannot assemble chains", "error", err)
		return
	}

	report, err := diagnose.Run(ctx, sim, diagnose.Options{
		RhatThreshold: config.RhatThreshold,
		ESSFloor:      config.ESSFloor,
		Workers:       config.Workers,
		Sink:          sink,
	})
	if err != nil {
		logger.Warn("diagnostics failed", "error", err)
		return
	}

	logger.Info("diagnostics updated",
		"chains", sim.Chains,
		"parameters", len(report.Results),
		"rhat_exceeded", report.RhatExceeded(),
		"ess_below", report.ESSBelow(),
		"degenerate", report.Degenerate(),
	)
}
