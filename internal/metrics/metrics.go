// Package metrics объявляет метрики Prometheus, которые отдаются на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Значения метки result.
const (
	ResultOK        = "ok"
	ResultDuplicate = "duplicate"
	ResultIgnored   = "ignored"
	ResultInvalid   = "invalid"
	ResultError     = "error"
)

var (
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examprep_webhook_events_total",
			Help: "Payment webhook events by type and processing result",
		},
		[]string{"event_type", "result"},
	)

	WebhookDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "examprep_webhook_duration_seconds",
			Help:    "Duration of payment webhook processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event_type"},
	)

	EntitlementsGranted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examprep_entitlements_granted_total",
			Help: "Entitlement changes applied after payment, by purchased tier",
		},
		[]string{"tier"},
	)

	CheckoutSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examprep_checkout_sessions_total",
			Help: "Checkout session creation attempts by tier and result",
		},
		[]string{"tier", "result"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examprep_notifications_total",
			Help: "Notification e-mails by kind and result",
		},
		[]string{"kind", "result"},
	)
)
