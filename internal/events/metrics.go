package events

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes Prometheus collectors for the event bus.
type Metrics struct {
	emitted  *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewMetrics registers the bus collectors. A nil registerer uses the default
// Prometheus registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	emitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roofing_events_emitted_total",
		Help: "Events emitted on the in-process bus by name.",
	}, []string{"event"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roofing_event_listener_failures_total",
		Help: "Listener errors and panics contained by the bus.",
	}, []string{"event"})
	registerer.MustRegister(emitted, failures)
	return &Metrics{emitted: emitted, failures: failures}
}

func (m *Metrics) observeEmit(name Name) {
	if m == nil {
		return
	}
	m.emitted.WithLabelValues(string(name)).Inc()
}

func (m *Metrics) observeFailure(name Name) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(string(name)).Inc()
}
