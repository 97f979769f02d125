package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upload outcomes used as the status label of cropscore_uploads_total
const (
	statusOK         = "ok"
	statusRejected   = "rejected"
	statusBadRequest = "bad_request"
	statusTooLarge   = "too_large"
	statusBusy       = "busy"
	statusError      = "error"
)

type metrics struct {
	uploads        *prometheus.CounterVec
	recordsScored  prometheus.Counter
	recordsSkipped prometheus.Counter
	scoreDuration  prometheus.Histogram
}

func newMetrics(reg *prometheus.Registry) *metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &metrics{
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cropscore_uploads_total",
				Help: "Uploads received by outcome",
			},
			[]string{"status"},
		),
		recordsScored: factory.NewCounter(prometheus.CounterOpts{
			Name: "cropscore_records_scored_total",
			Help: "Rows scored across all uploads",
		}),
		recordsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "cropscore_records_skipped_total",
			Help: "Malformed rows dropped under the skip policy",
		}),
		scoreDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cropscore_score_duration_seconds",
			Help:    "Time spent decoding and scoring one upload",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}),
	}
}
