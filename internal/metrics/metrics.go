// Package metrics exposes Prometheus collectors for the SOS pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	alertsCreated     *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	fanOutDuration    prometheus.Histogram
	fanOutRecipients  prometheus.Histogram
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		alertsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sos_alerts_created_total",
				Help: "SOS alerts persisted, by emergency type",
			},
			[]string{"emergency_type"},
		),
		statusTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sos_alert_status_transitions_total",
				Help: "Alert status transitions out of active",
			},
			[]string{"status"},
		),
		notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sos_notifications_total",
				Help: "Notification attempts by ledger status",
			},
			[]string{"status"},
		),
		fanOutDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sos_fanout_duration_seconds",
				Help:    "Wall time of one fan-out invocation",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		fanOutRecipients: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sos_fanout_recipients",
				Help:    "Recipient count per fan-out invocation",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
	}
}

func (m *Metrics) AlertCreated(emergencyType string) {
	if m == nil {
		return
	}
	m.alertsCreated.WithLabelValues(emergencyType).Inc()
}

func (m *Metrics) StatusTransition(status string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) Notification(status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(status).Inc()
}

func (m *Metrics) FanOut(d time.Duration, recipients int) {
	if m == nil {
		return
	}
	m.fanOutDuration.Observe(d.Seconds())
	m.fanOutRecipients.Observe(float64(recipients))
}
