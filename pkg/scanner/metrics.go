package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barcode",
			Subsystem: "scanner",
			Name:      "scans_total",
			Help:      "Completed scans by outcome.",
		},
		[]string{"outcome"},
	)
	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "barcode",
			Subsystem: "scanner",
			Name:      "scan_duration_seconds",
			Help:      "Time from Scan to resolution, by outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"outcome"},
	)
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "barcode",
			Subsystem: "scanner",
			Name:      "active_sessions",
			Help:      "Scan sessions currently presented.",
		},
	)
)
