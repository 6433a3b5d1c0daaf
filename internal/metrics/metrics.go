package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for one process. Each instance owns its registry so
// tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	Completions       *prometheus.CounterVec
	CompletionLatency *prometheus.HistogramVec
	Documents         *prometheus.CounterVec
	Phases            *prometheus.CounterVec
	ProcessDuration   *prometheus.HistogramVec
	Components        *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Completions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sparcflow_completions_total",
			Help: "Completion calls by provider and result",
		}, []string{"provider", "result"}),
		CompletionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sparcflow_completion_seconds",
			Help:    "Completion call latency by phase",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"phase"}),
		Documents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sparcflow_documents_total",
			Help: "Architect documents by name and result (generated, reused, failed)",
		}, []string{"document", "result"}),
		Phases: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sparcflow_synthesis_phases_total",
			Help: "Synthesis phase outcomes by phase and status",
		}, []string{"phase", "status"}),
		ProcessDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sparcflow_process_seconds",
			Help:    "External process wall time by kind (agent, verify)",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"kind"}),
		Components: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sparcflow_components_total",
			Help: "Final component outcomes by status",
		}, []string{"status"}),
	}
}

// ObserveCompletion records one completion call. Safe on a nil receiver.
func (m *Metrics) ObserveCompletion(provider, phase string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Completions.WithLabelValues(provider, result).Inc()
	m.CompletionLatency.WithLabelValues(phase).Observe(d.Seconds())
}

func (m *Metrics) ObserveDocument(document, result string) {
	if m == nil {
		return
	}
	m.Documents.WithLabelValues(document, result).Inc()
}

func (m *Metrics) ObservePhase(phase, status string) {
	if m == nil {
		return
	}
	m.Phases.WithLabelValues(phase, status).Inc()
}

func (m *Metrics) ObserveProcess(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProcessDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) ObserveComponent(status string) {
	if m == nil {
		return
	}
	m.Components.WithLabelValues(status).Inc()
}

// WriteFile dumps the registry in text exposition format. An empty path is a no-op.
func (m *Metrics) WriteFile(path string) error {
	if m == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
