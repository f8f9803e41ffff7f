// Package observability exposes Prometheus metrics for the auth server on a
// listener separate from the public API.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the server's custom collectors. It satisfies the auth
// package's MetricsRecorder and the request-metrics middleware's recorder.
type Metrics struct {
	LoginsTotal      *prometheus.CounterVec
	TokenChecksTotal *prometheus.CounterVec
	RequestsTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers the custom collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authserver_logins_total",
				Help: "Login attempts by strategy and terminal outcome",
			},
			[]string{"strategy", "outcome"},
		),
		TokenChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authserver_token_checks_total",
				Help: "Request-time token verifications by authenticator and result",
			},
			[]string{"filter", "result"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authserver_http_requests_total",
				Help: "HTTP requests by method and status code",
			},
			[]string{"method", "status"},
		),
	}

	reg.MustRegister(m.LoginsTotal, m.TokenChecksTotal, m.RequestsTotal)
	return m
}

// LoginOutcome counts one login attempt.
func (m *Metrics) LoginOutcome(strategy, outcome string) {
	m.LoginsTotal.WithLabelValues(strategy, outcome).Inc()
}

// TokenCheck counts one token verification.
func (m *Metrics) TokenCheck(filter, result string) {
	m.TokenChecksTotal.WithLabelValues(filter, result).Inc()
}

// HTTPRequest counts one served request.
func (m *Metrics) HTTPRequest(method string, status int) {
	m.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
