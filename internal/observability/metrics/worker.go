package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vmoraes/debtflow/internal/core/domain"
)

// WorkerMetrics tracks import processing. It implements
// ports.PipelineObserver so the processor can report per-row and
// per-import outcomes.
type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	importTotal     *prometheus.CounterVec
	finalizedTotal  *prometheus.CounterVec
	importDuration  *prometheus.HistogramVec
	importInFlight  prometheus.Gauge
	rowTotal        *prometheus.CounterVec
	redispatchTotal prometheus.Counter
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	importTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "debtflow",
			Subsystem: "worker",
			Name:      "import_process_total",
			Help:      "Total processed imports by final status.",
		},
		[]string{"service", "status"},
	)
	finalizedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "debtflow",
			Subsystem: "worker",
			Name:      "import_finalized_total",
			Help:      "Total finalized imports by final batch status.",
		},
		[]string{"service", "status"},
	)
	importDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "debtflow",
			Subsystem: "worker",
			Name:      "import_process_duration_seconds",
			Help:      "Import processing duration in seconds by outcome.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	importInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "debtflow",
			Subsystem: "worker",
			Name:      "import_process_in_flight",
			Help:      "Number of in-flight import processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rowTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "debtflow",
			Subsystem: "worker",
			Name:      "row_process_total",
			Help:      "Total processed staged rows by terminal status.",
		},
		[]string{"service", "status"},
	)
	redispatchTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "debtflow",
			Subsystem: "worker",
			Name:      "import_redispatch_total",
			Help:      "Total stuck imports republished by the supervisor.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(importTotal, finalizedTotal, importDuration, importInFlight, rowTotal, redispatchTotal)

	return &WorkerMetrics{
		registry:        registry,
		service:         service,
		importTotal:     importTotal,
		finalizedTotal:  finalizedTotal,
		importDuration:  importDuration,
		importInFlight:  importInFlight,
		rowTotal:        rowTotal,
		redispatchTotal: redispatchTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartImport() {
	m.importInFlight.Inc()
}

func (m *WorkerMetrics) FinishImport(duration time.Duration, err error) {
	m.importInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.importTotal.WithLabelValues(m.service, status).Inc()
	m.importDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

// RowProcessed implements ports.PipelineObserver.
func (m *WorkerMetrics) RowProcessed(status domain.ContactStatus) {
	m.rowTotal.WithLabelValues(m.service, string(status)).Inc()
}

// ImportFinalized implements ports.PipelineObserver.
func (m *WorkerMetrics) ImportFinalized(status domain.ImportStatus, _, _ int) {
	m.finalizedTotal.WithLabelValues(m.service, string(status)).Inc()
}

func (m *WorkerMetrics) RecordRedispatch(count int) {
	if count > 0 {
		m.redispatchTotal.Add(float64(count))
	}
}
