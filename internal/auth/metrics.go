// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "github.com/prometheus/client_golang/prometheus"

// Operation labels.
const (
	OpRegister       = "register"
	OpLogin          = "login"
	OpCreateSession  = "create_session"
	OpResolveSession = "resolve_session"
	OpDestroySession = "destroy_session"
	OpRequestReset   = "request_reset"
	OpCompleteReset  = "complete_reset"
	OpChangePassword = "change_password"
)

// Status labels.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// Operations counts auth service calls by operation and outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Operations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holoauth_auth_operations_total",
		Help: "Total number of auth service operations by outcome",
	},
	[]string{"operation", "status"},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Operations)
}

func record(operation, status string) {
	Operations.WithLabelValues(operation, status).Inc()
}
