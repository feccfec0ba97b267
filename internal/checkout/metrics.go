package checkout

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Results  *prometheus.CounterVec
	Duration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gym",
			Subsystem: "checkout",
			Name:      "results_total",
			Help:      "Finished purchases by outcome and the phase that ended them.",
		}, []string{"outcome", "phase"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gym",
			Subsystem: "checkout",
			Name:      "duration_seconds",
			Help:      "Wall time of a purchase from session open to close.",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Results, m.Duration)
	}
	return m
}
