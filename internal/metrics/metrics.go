// Package metrics exposes Prometheus instruments for answered questions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hyperjump/mxrag/internal/models"
)

// Metrics holds the answer pipeline instruments.
type Metrics struct {
	answers     *prometheus.CounterVec
	decisions   *prometheus.CounterVec
	webSearches prometheus.Counter
	failures    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	keptHits    prometheus.Histogram
	topScore    prometheus.Histogram
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mxrag_answers_total",
			Help: "Answered questions by final state and context layout",
		}, []string{"state", "layout"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mxrag_web_search_decisions_total",
			Help: "Fallback decisions by reason",
		}, []string{"reason"}),
		webSearches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mxrag_web_searches_total",
			Help: "Live web searches performed",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mxrag_failures_total",
			Help: "Questions that could not be answered, by kind",
		}, []string{"kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mxrag_answer_latency_seconds",
			Help:    "End-to-end answer latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"state"}),
		keptHits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mxrag_retrieved_hits",
			Help:    "Kept database hits per question",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 8, 12},
		}),
		topScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mxrag_top_combined_score",
			Help:    "Combined score of the best database hit",
			Buckets: []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.15, 1.3},
		}),
	}
	reg.MustRegister(m.answers, m.decisions, m.webSearches, m.failures, m.latency, m.keptHits, m.topScore)
	return m
}

// ObserveAnswer records a completed pipeline run.
func (m *Metrics) ObserveAnswer(a *models.Answer) {
	state := string(a.State)
	m.answers.WithLabelValues(state, string(a.Layout)).Inc()
	if a.DecisionReason != "" {
		m.decisions.WithLabelValues(a.DecisionReason).Inc()
	}
	if a.WebSearched {
		m.webSearches.Inc()
	}
	m.latency.WithLabelValues(state).Observe(a.LatencySeconds)
	m.keptHits.Observe(float64(len(a.Hits)))
	if len(a.Hits) > 0 {
		m.topScore.Observe(a.Hits[0].CombinedScore)
	}
}

// IncFailure records a question that ended in an error of the given kind.
func (m *Metrics) IncFailure(kind string) {
	m.failures.WithLabelValues(kind).Inc()
}
