// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "Duration of HTTP request handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	OperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_operation_errors_total",
			Help: "Total number of failed operations by error category",
		},
		[]string{"operation", "category"},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_submissions_total",
			Help: "Application submissions by outcome",
		},
		[]string{"outcome"},
	)

	SubmissionStepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_submission_step_failures_total",
			Help: "Submission failures by saga step",
		},
		[]string{"step"},
	)

	ChatMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_chat_messages_total",
			Help: "Total number of chat messages stored",
		},
	)

	ChatSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_chat_subscribers",
			Help: "Number of open chat WebSocket streams",
		},
	)

	AdvisoryCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_advisory_calls_total",
			Help: "Generative AI advisory calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_notifications_total",
			Help: "Outbound notifications by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)
)
