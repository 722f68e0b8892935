// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SessionsTotal tracks total sessions created.
	SessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concierge_sessions_total",
			Help: "Total sessions created",
		},
	)

	// MessagesTotal tracks total chat messages by role.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_messages_total",
			Help: "Total chat messages",
		},
		[]string{"role"},
	)

	// CallsStarted tracks calls placed, labeled by transport (provider or
	// simulated).
	CallsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_calls_started_total",
			Help: "Total vendor calls started",
		},
		[]string{"transport"},
	)

	// CallsFinished tracks terminal call classifications.
	CallsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_calls_finished_total",
			Help: "Total calls reaching a terminal status",
		},
		[]string{"status"},
	)

	// NegotiationTurns tracks state machine turns by stage and outcome
	// (advance, retry, terminal).
	NegotiationTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_negotiation_turns_total",
			Help: "Negotiation state machine turns",
		},
		[]string{"stage", "outcome"},
	)

	// WebhookEvents tracks provider status callbacks by provider status and
	// whether the event was applied or dropped as a duplicate.
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_webhook_events_total",
			Help: "Call status callbacks received",
		},
		[]string{"provider_status", "result"},
	)

	// TransactionsTotal tracks transaction status transitions.
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_transactions_total",
			Help: "Transaction status transitions",
		},
		[]string{"status"},
	)

	// LLMRequestDuration tracks LLM completion duration.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM completion request duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordNegotiationTurn records one state machine turn.
func RecordNegotiationTurn(stage, outcome string) {
	NegotiationTurns.WithLabelValues(stage, outcome).Inc()
}

// RecordWebhookEvent records one status callback delivery.
func RecordWebhookEvent(providerStatus, result string) {
	WebhookEvents.WithLabelValues(providerStatus, result).Inc()
}
