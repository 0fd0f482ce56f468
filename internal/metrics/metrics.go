package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkmark_probes_total",
		Help: "Completed link-health probes by classified status.",
	}, []string{"status"})

	ProbeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "linkmark_probe_duration_seconds",
		Help:    "Wall-clock duration of link-health probes.",
		Buckets: prometheus.DefBuckets,
	})

	ProbesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkmark_probes_rejected_total",
		Help: "Probe submissions dropped by worker-pool backpressure.",
	})
)
