package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Ledger
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_submissions_total",
			Help: "Accepted deposit/withdraw requests",
		},
		[]string{"kind"}, // deposit|withdraw
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_decisions_total",
			Help: "Applied operator decisions",
		},
		[]string{"kind", "decision"},
	)
	DecisionsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_decisions_failed_total",
			Help: "Operator decisions that did not apply",
		},
		[]string{"reason"}, // not_found|already_decided|insufficient_funds|storage|other
	)
	DecisionRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_decision_retries_total",
			Help: "Units of work retried after a write conflict",
		},
	)

	// Realtime
	RealtimeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_sessions",
			Help: "Live realtime sessions on this instance",
		},
	)
	NotificationsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_notifications_dropped_total",
			Help: "Events not delivered to a session",
		},
		[]string{"reason"}, // buffer_full|queue_full|publish_error
	)
	OperatorMessagesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "operator_messages_failed_total",
			Help: "Operator side-channel messages that failed or were short-circuited",
		},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	initOnce sync.Once
)

// /metrics endpoint handler
var Handler = promhttp.Handler

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestLatency,
			SubmissionsTotal,
			DecisionsTotal,
			DecisionsFailed,
			DecisionRetries,
			RealtimeSessions,
			NotificationsDropped,
			OperatorMessagesFailed,
			WorkerQueueDepth,
		)
	})
}
