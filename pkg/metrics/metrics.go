// Package metrics exposes the service's Prometheus instrumentation.
// Metrics register themselves through promauto; importers just use them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planward_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures server response time per route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planward_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// GenerationsTotal counts finished graph generations by result.
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planward_generations_total",
			Help: "Total number of completed graph generation attempts",
		},
		[]string{"result"},
	)

	// ChecksTotal counts finished check cycles by result.
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planward_checks_total",
			Help: "Total number of completed check cycles",
		},
		[]string{"result"},
	)

	// ToolCallsTotal counts agent tool calls that reached the session.
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planward_agent_tool_calls_total",
			Help: "Total number of agent tool calls applied to sessions",
		},
		[]string{"tool"},
	)

	// AgentRequestDuration measures end-to-end agent interactions. Buckets
	// stretch far to the right: a validation round trip can take minutes.
	AgentRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planward_agent_request_duration_seconds",
			Help:    "Duration of agent interactions in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"operation"},
	)

	// ActiveSessions tracks sessions currently held in memory.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "planward_active_sessions",
			Help: "Number of planning sessions currently resident",
		},
	)
)
