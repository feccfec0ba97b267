package paymentgateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Calls    *prometheus.CounterVec
	Attempts *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics builds the gateway collectors and registers them on reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gym",
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Gateway calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gym",
			Subsystem: "gateway",
			Name:      "http_attempts_total",
			Help:      "HTTP attempts sent to the gateway, retries included.",
		}, []string{"operation"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gym",
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "End to end gateway call latency including backoff.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.Calls, m.Attempts, m.Duration)
	}
	return m
}

func outcomeOf(err error, cached bool) string {
	if err == nil {
		if cached {
			return "cached"
		}
		return "success"
	}
	if kind := KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
