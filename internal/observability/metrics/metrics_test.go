package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSweepMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSweepMetrics(reg)

	m.ObserveSweep("completed", 3)
	m.ObserveAttempt("no_slot", 12.5)
	m.ObserveAttempt("confirmed", 95.0)
	m.ObserveCacheSkip()
	m.ObservePlannedSleep(1800)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheSkips))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.pendingPatient))
	assert.Equal(t, 1800.0, testutil.ToFloat64(m.plannedSleep))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attemptsTotal.WithLabelValues("no_slot")))
}

func TestSweepMetricsNilSafe(t *testing.T) {
	var m *SweepMetrics
	m.ObserveSweep("completed", 0)
	m.ObserveAttempt("failure", 1)
	m.ObserveCacheSkip()
	m.ObservePlannedSleep(0)
}
