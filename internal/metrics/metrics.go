// Package metrics defines the prometheus collectors for the ingestion
// pipeline and alert dispatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsRecorded counts persisted events, partitioned by verdict.
	EventsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canaryd_events_recorded_total",
		Help: "Number of canary events persisted.",
	}, []string{"suspicious"})

	// RateLimited counts callbacks rejected by the admission gate.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canaryd_rate_limited_total",
		Help: "Number of callbacks rejected by the rate limiter.",
	})

	// AlertAttempts counts per-channel delivery attempts by outcome.
	AlertAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canaryd_alert_attempts_total",
		Help: "Number of alert delivery attempts by channel and outcome.",
	}, []string{"channel", "outcome"})

	// AlertsDropped counts alerts rejected because the dispatch queue was full.
	AlertsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canaryd_alerts_dropped_total",
		Help: "Number of alerts dropped due to a full dispatch queue.",
	})
)

// Outcome labels for AlertAttempts.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)
