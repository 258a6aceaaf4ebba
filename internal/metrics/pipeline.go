// Package metrics holds the Prometheus collectors for the brief pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "meetingintel"

// Pipeline Prometheus metrics.
var (
	BriefsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "briefs_total",
			Help:      "Briefs produced, by input mode and outcome",
		},
		[]string{"mode", "outcome"}, // outcome: success / fallback / quota / error
	)

	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Deterministic fallback briefs, by trigger",
		},
		[]string{"reason"}, // "parse" / "schema" / "timeout"
	)

	RepairAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repair_attempts_total",
			Help:      "Repair prompts sent after an unusable draft",
		},
	)

	QuotaExceededTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_exceeded_total",
			Help:      "Generation calls refused for quota reasons",
		},
		[]string{"provider"},
	)

	AdapterRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_requests_total",
			Help:      "Source adapter calls, by adapter and status",
		},
		[]string{"adapter", "status"}, // "ok" / "error" / "timeout" / "open"
	)

	AdapterDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adapter_duration_seconds",
			Help:      "Source adapter call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"adapter"},
	)

	EvidenceItems = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fused_evidence_items",
			Help:      "Items in the fused evidence set",
			Buckets:   []float64{0, 1, 2, 4, 8, 12, 16, 22},
		},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_total",
			Help:      "Brief cache lookups",
		},
		[]string{"result"}, // "hit" / "miss" / "shared"
	)
)

var registerOnce sync.Once

// Register registers every pipeline and HTTP collector with the default
// registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			BriefsTotal,
			FallbacksTotal,
			RepairAttemptsTotal,
			QuotaExceededTotal,
			AdapterRequestsTotal,
			AdapterDuration,
			EvidenceItems,
			CacheTotal,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}
