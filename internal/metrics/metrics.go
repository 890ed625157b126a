package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bibliophile_bookings_created_total",
		Help: "Total number of bookings created",
	})

	PaymentIntentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bibliophile_payment_intents_total",
		Help: "Payment intents requested from the processor, by outcome",
	}, []string{"outcome"})

	PaymentIntentLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bibliophile_payment_intent_latency_seconds",
		Help:    "Latency of payment processor intent creation",
		Buckets: prometheus.DefBuckets,
	})

	PaymentsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bibliophile_payments_confirmed_total",
		Help: "Payments whose booking and book were both updated",
	})

	// PaymentConfirmFailuresTotal counts confirmations that stopped part-way.
	// The step label is the write that failed: payment, booking or book.
	PaymentConfirmFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bibliophile_payment_confirm_failures_total",
		Help: "Payment confirmations that failed, by failed step",
	}, []string{"step"})

	ReportsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bibliophile_reports_submitted_total",
		Help: "Report submissions, by result",
	}, []string{"result"})

	NotificationsEnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bibliophile_notifications_enqueued_total",
		Help: "Notification tasks handed to the queue, by template and outcome",
	}, []string{"template", "outcome"})

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
