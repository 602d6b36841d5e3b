package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeFixed     = "fixed"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
)

// Metrics tracks contact repairs. A nil *Metrics is valid and records nothing.
type Metrics struct {
	fixes        *prometheus.CounterVec
	addedNumbers prometheus.Counter
	fixDuration  prometheus.Histogram
	batchSize    prometheus.Histogram
}

// New registers the collectors on reg, or on the default registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fixes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contactfix",
			Subsystem: "contacts",
			Name:      "fixes_total",
			Help:      "Contact repair attempts, by outcome",
		}, []string{"outcome"}),
		addedNumbers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "contactfix",
			Subsystem: "contacts",
			Name:      "added_numbers_total",
			Help:      "Counterpart numbers appended to contacts",
		}),
		fixDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "contactfix",
			Subsystem: "contacts",
			Name:      "fix_duration_seconds",
			Help:      "Duration of a single contact repair including store round trips",
			Buckets:   prometheus.DefBuckets,
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "contactfix",
			Subsystem: "contacts",
			Name:      "batch_size",
			Help:      "Number of contacts examined per batch repair",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.fixes, m.addedNumbers, m.fixDuration, m.batchSize)
	return m
}

func (m *Metrics) ObserveFix(outcome string, added int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fixes.WithLabelValues(outcome).Inc()
	m.addedNumbers.Add(float64(added))
	m.fixDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveBatch(size int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
}
