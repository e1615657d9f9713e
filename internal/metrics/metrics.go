package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal counts user queries by outcome.
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "travelagent",
		Name:      "queries_total",
		Help:      "User queries processed by the agent loop, by outcome.",
	}, []string{"outcome"})

	// ToolCallsTotal counts tool executions by tool name and outcome.
	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "travelagent",
		Name:      "tool_calls_total",
		Help:      "Tool executions requested by the reasoning model.",
	}, []string{"tool", "outcome"})

	// EmailsTotal counts delivery attempts by outcome.
	EmailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "travelagent",
		Name:      "emails_total",
		Help:      "Email delivery attempts, by outcome.",
	}, []string{"outcome"})
)
