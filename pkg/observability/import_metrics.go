package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/FACorreiaa/budget-tracker/internal/domain/common"
)

// ImportMetrics records statement import events.
type ImportMetrics struct {
	uploads        *prometheus.CounterVec
	classified     *prometheus.CounterVec
	rows           *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

// NewImportMetrics registers the import collectors on reg. A nil reg uses the
// default registry.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &ImportMetrics{
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "uploads_total",
			Help:      "Statement uploads by outcome",
		}, []string{"outcome"}),
		classified: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "transactions_classified_total",
			Help:      "Extracted transactions by classifier stage and confidence",
		}, []string{"source", "confidence"}),
		rows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Committed statement rows by result",
		}, []string{"result"}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "active_sessions",
			Help:      "Upload sessions waiting for a date range or import",
		}),
	}
}

func (m *ImportMetrics) UploadProcessed(outcome string) {
	m.uploads.WithLabelValues(outcome).Inc()
}

func (m *ImportMetrics) TransactionClassified(source string, confidence common.Confidence) {
	if source == "" {
		source = "none"
	}
	m.classified.WithLabelValues(source, string(confidence)).Inc()
}

func (m *ImportMetrics) ImportCommitted(imported, skipped int) {
	m.rows.WithLabelValues("imported").Add(float64(imported))
	m.rows.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *ImportMetrics) ActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}
