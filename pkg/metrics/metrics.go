// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SkillRegistrations counts registration attempts by outcome.
	SkillRegistrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skill_registrations_total",
			Help: "Total skill registration requests",
		},
		[]string{"status"},
	)

	// SkillInvocations counts invocations by skill and terminal state.
	SkillInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skill_invocations_total",
			Help: "Total skill invocations by terminal state",
		},
		[]string{"skill_id", "status"},
	)

	// InvocationDuration observes wall-clock execution time.
	InvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skill_invocation_duration_seconds",
			Help:    "Skill execution wall-clock duration",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"skill_id"},
	)

	// ExecutionsInflight gauges currently-running sandbox jobs.
	ExecutionsInflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skill_executions_inflight",
			Help: "Sandbox executions currently running",
		},
	)

	// WorkflowExecutions counts orchestrated workflow runs by outcome.
	WorkflowExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_executions_total",
			Help: "Total workflow executions by terminal state",
		},
		[]string{"status"},
	)
)
