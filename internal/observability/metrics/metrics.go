package metrics

import (
	"github.com/me-karanm/cerebro-ai-sub001/internal/contacts"
	"github.com/prometheus/client_golang/prometheus"
)

// ContactMetrics exposes counters/gauges for the contact book and CSV imports.
type ContactMetrics struct {
	mutationsTotal  *prometheus.CounterVec
	contactsTouched *prometheus.CounterVec
	importRowsTotal *prometheus.CounterVec
	importsTotal    *prometheus.CounterVec
	importDuration  prometheus.Histogram
}

func NewContactMetrics(reg prometheus.Registerer) *ContactMetrics {
	m := &ContactMetrics{
		mutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cerebro",
			Subsystem: "contacts",
			Name:      "mutations_total",
			Help:      "Total contact store mutations by operation",
		}, []string{"op"}),
		contactsTouched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cerebro",
			Subsystem: "contacts",
			Name:      "records_touched_total",
			Help:      "Total contact records affected by mutations",
		}, []string{"op"}),
		importRowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cerebro",
			Subsystem: "csv_import",
			Name:      "rows_total",
			Help:      "CSV import data rows by outcome",
		}, []string{"outcome"}),
		importsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cerebro",
			Subsystem: "csv_import",
			Name:      "imports_total",
			Help:      "CSV import calls by result",
		}, []string{"result"}),
		importDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cerebro",
			Subsystem: "csv_import",
			Name:      "duration_seconds",
			Help:      "Time spent parsing and storing a CSV import",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.mutationsTotal, m.contactsTouched, m.importRowsTotal, m.importsTotal, m.importDuration)
	return m
}

// ContactsChanged implements contacts.Listener.
func (m *ContactMetrics) ContactsChanged(change contacts.Change) {
	if m == nil {
		return
	}
	op := string(change.Op)
	m.mutationsTotal.WithLabelValues(op).Inc()
	m.contactsTouched.WithLabelValues(op).Add(float64(len(change.IDs)))
}

func (m *ContactMetrics) ObserveImportRows(accepted, rejected int) {
	if m == nil {
		return
	}
	m.importRowsTotal.WithLabelValues("accepted").Add(float64(accepted))
	m.importRowsTotal.WithLabelValues("rejected").Add(float64(rejected))
}

func (m *ContactMetrics) ObserveImport(success bool, seconds float64) {
	if m == nil {
		return
	}
	result := "failed"
	if success {
		result = "success"
	}
	m.importsTotal.WithLabelValues(result).Inc()
	m.importDuration.Observe(seconds)
}
