package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var _ ITN = (*itnMetrics)(nil)

type itnMetrics struct {
	received        prometheus.Counter
	rejected        *prometheus.CounterVec
	reconciled      *prometheus.CounterVec
	reconcileFailed *prometheus.CounterVec
	lookup          *prometheus.HistogramVec
}

func newITNMetrics(reg prometheus.Registerer) *itnMetrics {
	received := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "itn_received_total",
		Help:      "Total number of ITN requests received",
	})

	rejected := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "itn_rejected_total",
			Help:      "ITN requests dropped by validation, by reason",
		},
		[]string{"reason"},
	)

	reconciled := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "itn_reconciled_total",
			Help:      "ITN requests applied to orders, by resulting action",
		},
		[]string{"action"},
	)

	reconcileFailed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "itn_reconcile_failures_total",
			Help:      "ITN requests that validated but could not be applied, by reason",
		},
		[]string{"reason"},
	)

	lookup := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "itn_allowlist_lookup_seconds",
			Help:      "Time spent resolving the Qpay allowlist",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	reg.MustRegister(received, rejected, reconciled, reconcileFailed, lookup)

	return &itnMetrics{
		received:        received,
		rejected:        rejected,
		reconciled:      reconciled,
		reconcileFailed: reconcileFailed,
		lookup:          lookup,
	}
}

func (m *itnMetrics) Received() {
	m.received.Inc()
}

func (m *itnMetrics) Rejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *itnMetrics) Reconciled(action string) {
	m.reconciled.WithLabelValues(action).Inc()
}

func (m *itnMetrics) ReconcileFailed(reason string) {
	m.reconcileFailed.WithLabelValues(reason).Inc()
}

func (m *itnMetrics) AllowlistLookup(duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.lookup.WithLabelValues(result).Observe(duration.Seconds())
}
