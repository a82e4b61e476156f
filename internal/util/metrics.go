package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_created_total",
		Help: "Total number of payment requests created",
	})

	PaymentsRetriedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_retried_total",
		Help: "Total number of payment requests created through retry",
	})

	PaymentsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Total number of refused payment requests",
	}, []string{"reason"})

	PaymentsInvoicedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_invoiced_total",
		Help: "Total number of payments invoiced",
	})

	PaymentsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_confirmed_total",
		Help: "Total number of payments confirmed",
	})

	PaymentsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_rejected_total",
		Help: "Total number of payments rejected",
	})

	PaymentsExpiredSeenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_expired_seen_total",
		Help: "Total number of expired payments observed at decision points",
	})

	TransitionConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transition_conflicts_total",
		Help: "Total number of status transitions lost to a concurrent update",
	}, []string{"transition"})

	AccessGrantsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "course_access_grants_total",
		Help: "Total number of course access grants created",
	})

	CertificatesIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "certificates_issued_total",
		Help: "Total number of certificates issued",
	})

	CertificateIssueRefused = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certificate_issue_refused_total",
		Help: "Total number of certificate issuance refusals",
	}, []string{"reason"})

	ConfirmLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_confirm_latency_seconds",
		Help:    "Latency of the confirm transaction",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
