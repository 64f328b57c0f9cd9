package metrics

import "github.com/prometheus/client_golang/prometheus"

// SweepMetrics exposes counters/gauges for the hunt loop.
type SweepMetrics struct {
	sweepsTotal    *prometheus.CounterVec
	attemptsTotal  *prometheus.CounterVec
	bookingsTotal  prometheus.Counter
	cacheSkips     prometheus.Counter
	plannedSleep   prometheus.Gauge
	pendingPatient prometheus.Gauge
	stepDuration   *prometheus.HistogramVec
}

func NewSweepMetrics(reg prometheus.Registerer) *SweepMetrics {
	m := &SweepMetrics{
		sweepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotseeker",
			Subsystem: "hunt",
			Name:      "sweeps_total",
			Help:      "Total polling sweeps, by outcome",
		}, []string{"outcome"}),
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotseeker",
			Subsystem: "hunt",
			Name:      "attempts_total",
			Help:      "Total per-patient booking attempts, by outcome",
		}, []string{"outcome"}),
		bookingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slotseeker",
			Subsystem: "hunt",
			Name:      "bookings_total",
			Help:      "Total confirmed bookings",
		}),
		cacheSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slotseeker",
			Subsystem: "hunt",
			Name:      "cache_skips_total",
			Help:      "Patients skipped because all their regions were recently dry",
		}),
		plannedSleep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "slotseeker",
			Subsystem: "hunt",
			Name:      "planned_sleep_seconds",
			Help:      "Sleep the scheduler planned before the next sweep",
		}),
		pendingPatient: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "slotseeker",
			Subsystem: "hunt",
			Name:      "pending_patients",
			Help:      "Unbooked patients in the queue at the last sweep",
		}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "slotseeker",
			Subsystem: "hunt",
			Name:      "attempt_duration_seconds",
			Help:      "Wall time of one booking attempt",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sweepsTotal, m.attemptsTotal, m.bookingsTotal,
		m.cacheSkips, m.plannedSleep, m.pendingPatient, m.stepDuration)
	return m
}

func (m *SweepMetrics) ObserveSweep(outcome string, pending int) {
	if m == nil {
		return
	}
	m.sweepsTotal.WithLabelValues(outcome).Inc()
	m.pendingPatient.Set(float64(pending))
}

func (m *SweepMetrics) ObserveAttempt(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(outcome).Inc()
	m.stepDuration.WithLabelValues(outcome).Observe(seconds)
	if outcome == "confirmed" {
		m.bookingsTotal.Inc()
	}
}

func (m *SweepMetrics) ObserveCacheSkip() {
	if m == nil {
		return
	}
	m.cacheSkips.Inc()
}

func (m *SweepMetrics) ObservePlannedSleep(seconds float64) {
	if m == nil {
		return
	}
	m.plannedSleep.Set(seconds)
}
