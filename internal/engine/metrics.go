package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	stackDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "modalnav",
			Subsystem: "engine",
			Name:      "stack_depth",
			Help:      "Number of open or loading modals",
		},
	)

	opensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modalnav",
			Subsystem: "engine",
			Name:      "opens_total",
			Help:      "Modal opens by source",
		},
		[]string{"source"},
	)

	closesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modalnav",
			Subsystem: "engine",
			Name:      "closes_total",
			Help:      "Modal closes by reason",
		},
		[]string{"reason"},
	)

	closeCanceledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modalnav",
			Subsystem: "engine",
			Name:      "close_canceled_total",
			Help:      "Closes canceled by a beforeClose handler",
		},
	)

	prefetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modalnav",
			Subsystem: "engine",
			Name:      "prefetch_total",
			Help:      "Prefetch attempts by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(stackDepth, opensTotal, closesTotal, closeCanceledTotal, prefetchTotal)
}
