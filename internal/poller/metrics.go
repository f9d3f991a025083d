package poller

import "github.com/prometheus/client_golang/prometheus"

const namespace = "startrad"

type Metrics struct {
	Checks  prometheus.Counter
	Updates *prometheus.CounterVec
	Running prometheus.Gauge
}

// NewMetrics creates the poller collectors and registers them with reg
// when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Checks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "checks_total",
			Help:      "Total number of translation update checks",
		}),
		Updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "poller",
				Name:      "updates_total",
				Help:      "Translation updates attempted by the poller",
			},
			[]string{"channel", "result"},
		),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "running",
			Help:      "Whether the background poller loop is running",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Checks, m.Updates, m.Running)
	}
	return m
}
