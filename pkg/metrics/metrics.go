// Copyright 2025 Certen Protocol
//
// Pipeline Metrics
// Prometheus instrumentation for attestation throughput, stage latency, and
// anchor retry behavior.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttestationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "zkpa",
		Name:      "attestations_created_total",
		Help:      "Total number of attestations accepted for processing.",
	})

	AttestationsByState = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zkpa",
		Name:      "attestations_terminal_total",
		Help:      "Total number of attestations that reached a terminal state, labeled by state.",
	}, []string{"state"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zkpa",
		Name:      "stage_duration_seconds",
		Help:      "Duration of an individual lifecycle stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	AnchorRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "zkpa",
		Name:      "anchor_retries_total",
		Help:      "Total number of anchor submission retry attempts.",
	})

	AnchorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zkpa",
		Name:      "anchor_failures_total",
		Help:      "Total number of anchor submission failures, labeled by kind (transient, permanent).",
	}, []string{"kind"})

	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zkpa",
		Name:      "webhook_deliveries_total",
		Help:      "Total number of webhook notifications by final outcome (delivered, rejected, dropped).",
	}, []string{"outcome"})
)

// StageTimer starts a timer that records the elapsed duration for stage
// under StageDuration when the returned function is called.
func StageTimer(stage string) func() {
	start := time.Now()
	return func() {
		StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
