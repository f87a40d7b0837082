package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics instruments the question-answering pipeline itself:
// per-question outcomes and durations, retrieval yield, and whole runs.
type PipelineMetrics struct {
	registry *prometheus.Registry
	service  string

	questionTotal    *prometheus.CounterVec
	questionDuration *prometheus.HistogramVec
	retrievedChunks  prometheus.Histogram
	runTotal         *prometheus.CounterVec
	runDuration      prometheus.Histogram
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	questionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clauseq",
			Subsystem: "pipeline",
			Name:      "questions_total",
			Help:      "Total processed questions by outcome.",
		},
		[]string{"service", "status"},
	)
	questionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clauseq",
			Subsystem: "pipeline",
			Name:      "question_duration_seconds",
			Help:      "Per-question pipeline duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	retrievedChunks := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clauseq",
			Subsystem: "pipeline",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per answered question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	runTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clauseq",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total batch runs by outcome.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clauseq",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Whole-batch duration in seconds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(questionTotal, questionDuration, retrievedChunks, runTotal, runDuration)

	return &PipelineMetrics{
		registry:         registry,
		service:          service,
		questionTotal:    questionTotal,
		questionDuration: questionDuration,
		retrievedChunks:  retrievedChunks,
		runTotal:         runTotal,
		runDuration:      runDuration,
	}
}

func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) ObserveQuestion(status string, elapsed time.Duration) {
	m.questionTotal.WithLabelValues(m.service, status).Inc()
	m.questionDuration.WithLabelValues(m.service, status).Observe(elapsed.Seconds())
}

func (m *PipelineMetrics) ObserveRetrievedChunks(count int) {
	m.retrievedChunks.Observe(float64(count))
}

func (m *PipelineMetrics) ObserveRun(status string, elapsed time.Duration) {
	m.runTotal.WithLabelValues(m.service, status).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}
