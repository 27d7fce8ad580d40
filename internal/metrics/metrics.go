// Package metrics defines Prometheus metrics for the mail-in buyback service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mbb"

// HTTP metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "1 if the last liveness probe succeeded, 0 otherwise.",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "1 if the last readiness probe succeeded, 0 otherwise.",
	})
)

// Request lifecycle metrics.
var (
	RequestsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_created_total",
		Help:      "Total number of mail-in requests accepted at intake.",
	})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Total number of successful status transitions.",
	}, []string{"from", "to"})

	GuardViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_violations_total",
		Help:      "Total number of actions rejected because the request was in the wrong status.",
	}, []string{"action"})

	AssessmentPriceChangedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assessment_price_changed_total",
		Help:      "Total number of final assessments whose price differed from the preliminary estimate.",
	})

	GuaranteeAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guarantee_applied_total",
		Help:      "Total number of item prices raised to their guaranteed minimum.",
	})

	LookupGapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deduction_lookup_gaps_total",
		Help:      "Total number of deduction lookups with no matching table row.",
	})
)

// Completion metrics.
var (
	CompletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completions_total",
		Help:      "Total number of payouts materialized into customer, purchase, and inventory records.",
	})

	CompletionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completion_failures_total",
		Help:      "Total number of fatal completion failures by step.",
	}, []string{"step"})

	CompletionWarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completion_warnings_total",
		Help:      "Total number of non-fatal completion step failures by step.",
	}, []string{"step"})

	CompletionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "completion_duration_seconds",
		Help:      "Duration of payout completion in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Retention metrics.
var (
	SweepDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retention_sweep_deleted_total",
		Help:      "Total number of returned requests purged by the retention sweep.",
	})

	SweepLastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "retention_sweep_last_run_timestamp",
		Help:      "Unix timestamp of the last completed retention sweep.",
	})

	SweepNextRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "retention_sweep_next_run_timestamp",
		Help:      "Unix timestamp of the next scheduled retention sweep.",
	})
)

// Notification metrics.
var (
	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Total number of notifications delivered by action.",
	}, []string{"action"})

	NotificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total number of notification send failures by action.",
	}, []string{"action"})

	NotificationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_duration_seconds",
		Help:      "Duration of notification backend calls in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"backend"})
)
