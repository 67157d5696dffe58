package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline counters live on the default registry; the pipeline binary
// exposes them on its own listener.
var (
	EventsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pipeline",
			Name:      "events_processed_total",
			Help:      "Total number of events written to the sink",
		},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pipeline",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped before the sink",
		},
		[]string{"reason"}, // "decode", "validate", "no_shop"
	)

	SinkFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pipeline",
			Name:      "sink_failures_total",
			Help:      "Total number of failed sink writes",
		},
	)

	GeneratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pipeline",
			Name:      "generator_calls_total",
			Help:      "Total number of message generator invocations",
		},
		[]string{"result"}, // "ok", "error", "memoized"
	)
)
