package exam

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// source: live/prefetched/fallback
	sessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vanguard_exam_sessions_started_total",
			Help: "Exam sessions started by question source",
		},
		[]string{"source"},
	)

	sessionsFinished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vanguard_exam_sessions_finished_total",
			Help: "Exam sessions submitted and scored",
		},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vanguard_exam_sessions_active",
			Help: "Exam sessions currently held in memory",
		},
	)
)
