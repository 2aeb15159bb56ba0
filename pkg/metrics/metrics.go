package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gqpanel"

var (
	// MutationsTotal counts dispatcher outcomes per table and action.
	MutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "CRUD mutations by table, action and outcome.",
	}, []string{"table", "action", "outcome"})

	// AuditWriteFailures counts audit rows that could not be written.
	AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_write_failures_total",
		Help:      "Audit records dropped because the write failed.",
	})

	// ReportFailures counts reporting queries that degraded to an empty result.
	ReportFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_failures_total",
		Help:      "Reporting queries that failed and returned an empty result.",
	}, []string{"report"})

	// ToolRuns counts pg_dump and psql invocations.
	ToolRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tool_runs_total",
		Help:      "Backup and restore tool runs by tool and outcome.",
	}, []string{"tool", "outcome"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(
		MutationsTotal,
		AuditWriteFailures,
		ReportFailures,
		ToolRuns,
		HTTPRequestDuration,
	)
}

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)
