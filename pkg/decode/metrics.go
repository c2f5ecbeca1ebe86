package decode

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame dispositions.
const (
	dispositionGated          = "gated"
	dispositionThrottled      = "throttled"
	dispositionAnalyzed       = "analyzed"
	dispositionBelowThreshold = "below_threshold"
	dispositionAccepted       = "accepted"
	dispositionFailed         = "failed"
)

var (
	framesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barcode",
			Subsystem: "decode",
			Name:      "frames_total",
			Help:      "Frames seen by the decode pipeline, by disposition.",
		},
		[]string{"disposition"},
	)
	detectDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "barcode",
			Subsystem: "decode",
			Name:      "detect_duration_seconds",
			Help:      "Time spent in the symbol detector per analyzed frame.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)
