// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Renegan Contributors

package flow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submit results.
const (
	ResultAdvanced    = "advanced"
	ResultPending     = "pending_confirmation"
	ResultCompleted   = "completed"
	ResultValidation  = "validation_error"
	ResultRemoteError = "remote_error"
	ResultBusy        = "busy"
)

// Remote call statuses.
const (
	CallSuccess     = "success"
	CallTransport   = "transport_error"
	CallApplication = "application_error"
	CallDiscarded   = "discarded"
)

// Trigger phases.
const (
	PhaseEnter  = "enter"
	PhaseSubmit = "submit"
)

// SubmitsTotal counts submits by flow, step and result.
// Use RegisterMetrics to register this with a Prometheus registry.
var SubmitsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "campusauth_flow_submits_total",
		Help: "Total number of step submits by result",
	},
	[]string{"flow", "step", "result"},
)

// RemoteCallsTotal counts remote calls issued by flow steps.
// Use RegisterMetrics to register this with a Prometheus registry.
var RemoteCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "campusauth_flow_remote_calls_total",
		Help: "Total number of remote calls by flow, step, phase and status",
	},
	[]string{"flow", "step", "phase", "status"},
)

// RemoteCallDuration observes how long remote calls took.
// Use RegisterMetrics to register this with a Prometheus registry.
var RemoteCallDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "campusauth_flow_remote_call_duration_seconds",
		Help:    "Remote call duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"flow", "step", "phase"},
)

// CompletionsTotal counts flows that reached a terminal action.
// Use RegisterMetrics to register this with a Prometheus registry.
var CompletionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "campusauth_flow_completions_total",
		Help: "Total number of completed flows by terminal action",
	},
	[]string{"flow", "action"},
)

// RegisterMetrics registers flow metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(SubmitsTotal)
	reg.MustRegister(RemoteCallsTotal)
	reg.MustRegister(RemoteCallDuration)
	reg.MustRegister(CompletionsTotal)
}

// RecordSubmit increments the submit counter.
func RecordSubmit(kind Kind, step, result string) {
	SubmitsTotal.WithLabelValues(string(kind), step, result).Inc()
}

// RecordRemoteCall records a finished remote call and its duration.
func RecordRemoteCall(kind Kind, step, phase, status string, duration time.Duration) {
	RemoteCallsTotal.WithLabelValues(string(kind), step, phase, status).Inc()
	RemoteCallDuration.WithLabelValues(string(kind), step, phase).Observe(duration.Seconds())
}

// RecordCompletion increments the completion counter.
func RecordCompletion(kind Kind, action TerminalAction) {
	CompletionsTotal.WithLabelValues(string(kind), action.String()).Inc()
}
