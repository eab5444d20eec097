// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T, mutate func(*PrometheusConfig)) *PrometheusSink {
	t.Helper()
	config := DefaultPrometheusConfig()
	config.Registry = prometheus.NewRegistry()
	if mutate != nil {
		mutate(config)
	}
	sink, err := NewPrometheusSink(config)
	require.NoError(t, err)
	return sink
}

func TestPrometheusConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PrometheusConfig)
		wantErr bool
	}{
		{"defaults valid", nil, false},
		{"missing namespace", func(c *PrometheusConfig) { c.Namespace = "" }, true},
		{"missing subsystem", func(c *PrometheusConfig) { c.Subsystem = "" }, true},
		{"negative cardinality", func(c *PrometheusConfig) { c.MaxLabelCardinality = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultPrometheusConfig()
			if tt.mutate != nil {
				tt.mutate(config)
			}
			err := config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPrometheusSink_Record(t *testing.T) {
	t.Run("gauges track latest values", func(t *testing.T) {
		sink := newTestSink(t, nil)

		require.NoError(t, sink.Record(Observation{Parameter: "mu", ESS: 812.5, SplitRhat: 1.01}))
		require.NoError(t, sink.Record(Observation{Parameter: "mu", ESS: 900.0, SplitRhat: 1.005}))

		assert.Equal(t, 900.0, testutil.ToFloat64(sink.ess.WithLabelValues("mu")))
		assert.Equal(t, 1.005, testutil.ToFloat64(sink.splitRhat.WithLabelValues("mu")))
		assert.Equal(t, 2.0, testutil.ToFloat64(sink.recorded))
	})

	t.Run("degenerate increments counter only", func(t *testing.T) {
		sink := newTestSink(t, nil)

		require.NoError(t, sink.Record(Observation{Parameter: "sigma", Degenerate: true}))

		assert.Equal(t, 1.0, testutil.ToFloat64(sink.degenerate.WithLabelValues("sigma")))
		assert.Equal(t, 0.0, testutil.ToFloat64(sink.ess.WithLabelValues("sigma")))
	})

	t.Run("label cardinality bounded", func(t *testing.T) {
		sink := newTestSink(t, func(c *PrometheusConfig) { c.MaxLabelCardinality = 2 })

		for i := 0; i < 5; i++ {
			obs := Observation{Parameter: fmt.Sprintf("theta[%d]", i), ESS: float64(i), SplitRhat: 1}
			require.NoError(t, sink.Record(obs))
		}

		// First two names kept, the rest collapsed into _other.
		assert.Equal(t, 0.0, testutil.ToFloat64(sink.ess.WithLabelValues("theta[0]")))
		assert.Equal(t, 1.0, testutil.ToFloat64(sink.ess.WithLabelValues("theta[1]")))
		assert.Equal(t, 4.0, testutil.ToFloat64(sink.ess.WithLabelValues("_other")))
	})

	t.Run("closed sink rejects records", func(t *testing.T) {
		sink := newTestSink(t, nil)
		require.NoError(t, sink.Close())
		assert.ErrorIs(t, sink.Record(Observation{Parameter: "mu"}), ErrSinkClosed)
	})

	t.Run("concurrent records", func(t *testing.T) {
		sink := newTestSink(t, nil)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = sink.Record(Observation{Parameter: "mu", ESS: float64(i), SplitRhat: 1})
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 50.0, testutil.ToFloat64(sink.recorded))
	})
}

func TestNewPrometheusSink_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	config := DefaultPrometheusConfig()
	config.Registry = registry

	_, err := NewPrometheusSink(config)
	require.NoError(t, err)

	_, err = NewPrometheusSink(config)
	require.Error(t, err)
}

func TestNoopSink(t *testing.T) {
	var sink Sink = NoopSink{}
	assert.NoError(t, sink.Record(Observation{Parameter: "mu"}))
	assert.NoError(t, sink.Close())
}
