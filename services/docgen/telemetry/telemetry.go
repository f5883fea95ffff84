// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry provides pipeline metrics. All metrics use the
// "docgen_" prefix.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the documentation pipeline's collectors.
//
// All methods are nil-receiver safe so callers that run without metrics
// can pass a nil *Metrics and skip the instrumentation entirely.
type Metrics struct {
	// StageDuration records per-stage wall time in seconds.
	StageDuration *prometheus.HistogramVec

	// StageRunsTotal counts stage executions by stage and outcome.
	StageRunsTotal *prometheus.CounterVec

	// ErrorsTotal counts analysis errors by component and severity.
	ErrorsTotal *prometheus.CounterVec

	// ToolInvocationsTotal counts external tool executions by tool and
	// outcome.
	ToolInvocationsTotal *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors against reg. A nil
// registerer uses the process default.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docgen_stage_duration_seconds",
				Help:    "Wall time per pipeline stage.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 600},
			},
			[]string{"stage"},
		),
		StageRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docgen_stage_runs_total",
				Help: "Pipeline stage executions by outcome.",
			},
			[]string{"stage", "outcome"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docgen_errors_total",
				Help: "Analysis errors by component and severity.",
			},
			[]string{"component", "severity"},
		),
		ToolInvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docgen_tool_invocations_total",
				Help: "External tool executions by outcome.",
			},
			[]string{"tool", "outcome"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.StageDuration,
		m.StageRunsTotal,
		m.ErrorsTotal,
		m.ToolInvocationsTotal,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveStage records one stage execution.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration, succeeded bool) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	m.StageRunsTotal.WithLabelValues(stage, outcome(succeeded)).Inc()
}

// RecordError counts one analysis error.
func (m *Metrics) RecordError(component string, recoverable bool) {
	if m == nil {
		return
	}
	severity := "fatal"
	if recoverable {
		severity = "recoverable"
	}
	m.ErrorsTotal.WithLabelValues(component, severity).Inc()
}

// RecordToolInvocation counts one external tool execution.
func (m *Metrics) RecordToolInvocation(tool string, succeeded bool) {
	if m == nil {
		return
	}
	m.ToolInvocationsTotal.WithLabelValues(tool, outcome(succeeded)).Inc()
}

func outcome(succeeded bool) string {
	if succeeded {
		return "success"
	}
	return "failure"
}
