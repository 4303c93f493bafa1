package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegistryMetrics tracks the server registry. It satisfies registry.Metrics.
type RegistryMetrics struct {
	Size            prometheus.Gauge
	Mutations       *prometheus.CounterVec
	PersistFailures prometheus.Counter
}

func NewRegistryMetrics(reg prometheus.Registerer) *RegistryMetrics {
	m := &RegistryMetrics{
		Size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "servers",
			Help:      "Number of servers currently listed, defaults included.",
		}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "mutations_total",
			Help:      "Total number of add/remove attempts, by operation and result.",
		}, []string{"op", "result"}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "persist_failures_total",
			Help:      "Total number of registry snapshots that could not be written.",
		}),
	}

	reg.MustRegister(m.Size, m.Mutations, m.PersistFailures)
	return m
}

func (m *RegistryMetrics) SetSize(n int) {
	m.Size.Set(float64(n))
}

func (m *RegistryMetrics) ObserveMutation(op, result string) {
	m.Mutations.WithLabelValues(op, result).Inc()
}

func (m *RegistryMetrics) ObservePersistFailure() {
	m.PersistFailures.Inc()
}
