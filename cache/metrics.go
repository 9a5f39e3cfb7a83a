package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts cache outcomes per entity kind. A nil *Metrics records nothing.
type Metrics struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	backendErrors *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache lookups served from the backend.",
		}, []string{"kind"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache lookups that fell through to the store.",
		}, []string{"kind"}),
		backendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog",
			Subsystem: "cache",
			Name:      "backend_errors_total",
			Help:      "Backend or codec failures absorbed as misses.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.backendErrors)
	}
	return m
}

func (m *Metrics) hit(kind string) {
	if m != nil {
		m.hits.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) miss(kind string) {
	if m != nil {
		m.misses.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) backendError(kind string) {
	if m != nil {
		m.backendErrors.WithLabelValues(kind).Inc()
	}
}
