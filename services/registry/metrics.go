package registry

import "github.com/prometheus/client_golang/prometheus"

const namespace = "fengine"

type metrics struct {
	evaluations        *prometheus.CounterVec
	evaluationFailures *prometheus.CounterVec
	parseFailures      *prometheus.CounterVec
	sampleDuration     *prometheus.HistogramVec
}

func newMetrics() *metrics {
	return &metrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Number of points evaluated through the registry.",
		}, []string{"function"}),
		evaluationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_failures_total",
			Help:      "Number of points whose evaluation failed.",
		}, []string{"function"}),
		parseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Number of failed expression parses.",
		}, []string{"function"}),
		sampleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sample_duration_seconds",
			Help:      "Time spent sampling function grids.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"function"}),
	}
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.evaluations,
		m.evaluationFailures,
		m.parseFailures,
		m.sampleDuration,
	}
}

func (m *metrics) register(r prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *metrics) unregister(r prometheus.Registerer) {
	for _, c := range m.collectors() {
		r.Unregister(c)
	}
}

// forget drops the series of a deleted function.
func (m *metrics) forget(name string) {
	m.evaluations.DeleteLabelValues(name)
	m.evaluationFailures.DeleteLabelValues(name)
	m.parseFailures.DeleteLabelValues(name)
	m.sampleDuration.DeleteLabelValues(name)
}
