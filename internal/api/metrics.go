// internal/api/metrics.go
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webhookEventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received_total",
		Help: "Provider webhook events received, by event type.",
	}, []string{"event"})

	reviewsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pull_request_reviews_completed_total",
		Help: "Pull request reviews that completed successfully.",
	})

	reviewsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pull_request_reviews_failed_total",
		Help: "Pull request reviews that failed after the webhook was acknowledged.",
	})
)
