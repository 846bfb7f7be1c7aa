package conveyor

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the queue instrumentation of a pipeline. One Metrics is shared by all the queues of a
// run, each queue reporting under its own label.
type Metrics struct {
	pushed  *prometheus.CounterVec
	popped  *prometheus.CounterVec
	acked   *prometheus.CounterVec
	pending *prometheus.GaugeVec
}

// NewMetrics builds the queue collectors and registers them on reg. A nil registerer skips
// registration, which is convenient when the collectors are only scraped through a parent registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	labels := []string{"queue"}
	m := &Metrics{
		pushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conveyor",
			Name:      "queue_pushed_total",
			Help:      "Elements pushed to the queue, stop markers included.",
		}, labels),
		popped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conveyor",
			Name:      "queue_popped_total",
			Help:      "Elements popped from the queue, stop markers included.",
		}, labels),
		acked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conveyor",
			Name:      "queue_acked_total",
			Help:      "Elements acknowledged as fully processed.",
		}, labels),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "conveyor",
			Name:      "queue_pending",
			Help:      "Elements pushed but not yet acknowledged.",
		}, labels),
	}
	if reg != nil {
		reg.MustRegister(m.pushed, m.popped, m.acked, m.pending)
	}
	return m
}

// queueMetrics is the per-queue resolution of the labelled collectors. A nil *queueMetrics is a valid
// no-op receiver so uninstrumented queues pay no branching at the call sites.
type queueMetrics struct {
	pushedC  prometheus.Counter
	poppedC  prometheus.Counter
	ackedC   prometheus.Counter
	pendingG prometheus.Gauge
}

func (m *Metrics) queue(name string) *queueMetrics {
	if m == nil {
		return nil
	}
	return &queueMetrics{
		pushedC:  m.pushed.WithLabelValues(name),
		poppedC:  m.popped.WithLabelValues(name),
		ackedC:   m.acked.WithLabelValues(name),
		pendingG: m.pending.WithLabelValues(name),
	}
}

func (qm *queueMetrics) pushed() {
	if qm == nil {
		return
	}
	qm.pushedC.Inc()
	qm.pendingG.Inc()
}

func (qm *queueMetrics) popped() {
	if qm == nil {
		return
	}
	qm.poppedC.Inc()
}

func (qm *queueMetrics) acked() {
	if qm == nil {
		return
	}
	qm.ackedC.Inc()
	qm.pendingG.Dec()
}
