package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.AlertCreated("assault")
	m.AlertCreated("assault")
	m.Notification("sent")
	m.Notification("logged")
	m.StatusTransition("resolved")
	m.FanOut(120*time.Millisecond, 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.alertsCreated.WithLabelValues("assault")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("logged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusTransitions.WithLabelValues("resolved")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.fanOutDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AlertCreated("other")
		m.Notification("failed")
		m.StatusTransition("false_alarm")
		m.FanOut(time.Second, 1)
	})
}
