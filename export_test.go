package conveyor

import (
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// AntsPool returns the underlying goroutine pool
func (p *Pool[In, Out]) AntsPool() *ants.Pool {
	return p.runner
}

// Pushed returns the pushed counter resolved for a queue name
func (m *Metrics) Pushed(name string) prometheus.Counter {
	return m.pushed.WithLabelValues(name)
}

// Acked returns the acked counter resolved for a queue name
func (m *Metrics) Acked(name string) prometheus.Counter {
	return m.acked.WithLabelValues(name)
}

// PendingGauge returns the pending gauge resolved for a queue name
func (m *Metrics) PendingGauge(name string) prometheus.Gauge {
	return m.pending.WithLabelValues(name)
}
