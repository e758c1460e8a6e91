package question

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// outcome: ok/timeout/parse_error/credential_rejected/network_error
	batchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vanguard_batch_attempts_total",
			Help: "Generator batch attempts by outcome",
		},
		[]string{"outcome"},
	)

	// source: live/prefetched/fallback
	suppliedPacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vanguard_supplied_packs_total",
			Help: "Question packs handed to sessions by source",
		},
		[]string{"source"},
	)

	degradedPacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vanguard_degraded_packs_total",
			Help: "Live packs that delivered fewer questions than requested",
		},
	)

	supplyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vanguard_supply_duration_seconds",
			Help:    "Time spent assembling a question pack",
			Buckets: prometheus.DefBuckets,
		},
	)

	briefFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vanguard_brief_fallbacks_total",
			Help: "Enrichment requests answered with the generic brief",
		},
	)
)
