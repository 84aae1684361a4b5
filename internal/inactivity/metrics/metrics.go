package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles inactivity sweep metrics.
type Metrics struct {
	SweepsTotal     *prometheus.CounterVec
	SweepDuration   prometheus.Histogram
	InactiveSensors prometheus.Gauge
	AlertsSentTotal prometheus.Counter
	SendErrorsTotal prometheus.Counter
}

// New constructs and registers metrics.
func New() *Metrics {
	m := &Metrics{
		SweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_inactivity_sweeps_total",
				Help: "Total inactivity sweeps by status",
			},
			[]string{"status"},
		),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_inactivity_sweep_duration_seconds",
			Help:    "Inactivity sweep duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		InactiveSensors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_inactive_sensors",
			Help: "Inactive sensors found by the last sweep",
		}),
		AlertsSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_alerts_sent_total",
			Help: "Total inactivity alert emails sent",
		}),
		SendErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_alert_send_errors_total",
			Help: "Total failed alert sends",
		}),
	}
	prometheus.MustRegister(
		m.SweepsTotal,
		m.SweepDuration,
		m.InactiveSensors,
		m.AlertsSentTotal,
		m.SendErrorsTotal,
	)
	return m
}
