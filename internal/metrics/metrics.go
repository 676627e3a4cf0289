// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wanwu"

var (
	meritAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merit",
			Name:      "awarded_total",
			Help:      "Merit points granted, by record type.",
		},
		[]string{"type"},
	)

	meritConsumedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merit",
			Name:      "consumed_total",
			Help:      "Merit points spent.",
		},
	)

	ritualsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ritual",
			Name:      "completed_total",
			Help:      "Ritual sessions that reached a terminal state.",
		},
		[]string{"result"},
	)

	oracleRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "requests_total",
			Help:      "Upstream model calls by endpoint and outcome.",
		},
		[]string{"endpoint", "result"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of RPC and HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"transport", "method"},
	)
)

func MeritAwarded(kind string, amount int) {
	meritAwardedTotal.WithLabelValues(kind).Add(float64(amount))
}

func MeritConsumed(amount int) {
	meritConsumedTotal.Add(float64(amount))
}

// RitualFinished records a session outcome: "resolved" or "failed".
func RitualFinished(result string) {
	ritualsTotal.WithLabelValues(result).Inc()
}

func OracleRequest(endpoint string, ok bool) {
	result := "ok"
	if !ok {
		result = "fallback"
	}
	oracleRequestsTotal.WithLabelValues(endpoint, result).Inc()
}

func ObserveRequest(transport, method string, started time.Time) {
	requestDuration.WithLabelValues(transport, method).Observe(time.Since(started).Seconds())
}
