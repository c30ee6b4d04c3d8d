// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics records pipeline counters in a private Prometheus registry.
// A batch CLI has no scrape endpoint, so the registry is written to a
// node_exporter textfile collector file at the end of a run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for assessments.
const (
	OutcomeAssessed = "assessed"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
)

// Recorder holds the pipeline's collectors. The zero value is not usable;
// call New. A nil *Recorder is safe to call and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	eutilsRequests  *prometheus.CounterVec
	articlesFetched prometheus.Counter
	assessments     *prometheus.CounterVec
	llmDuration     *prometheus.HistogramVec
	llmRetries      *prometheus.CounterVec
	lastRun         *prometheus.GaugeVec
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		eutilsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fourp_eutils_requests_total",
			Help: "NCBI E-utilities requests by endpoint and HTTP status.",
		}, []string{"endpoint", "status"}),
		articlesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fourp_articles_fetched_total",
			Help: "Articles parsed from efetch responses.",
		}),
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fourp_assessments_total",
			Help: "Article assessments by provider and outcome.",
		}, []string{"provider", "outcome"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fourp_llm_request_duration_seconds",
			Help:    "Latency of language-model API calls.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"provider"}),
		llmRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fourp_llm_retries_total",
			Help: "Language-model calls retried after a transient failure.",
		}, []string{"provider"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fourp_stage_last_run_timestamp_seconds",
			Help: "Unix time a pipeline stage last completed.",
		}, []string{"stage"}),
	}
	r.registry.MustRegister(
		r.eutilsRequests,
		r.articlesFetched,
		r.assessments,
		r.llmDuration,
		r.llmRetries,
		r.lastRun,
	)
	return r
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) EUtilsRequest(endpoint string, status int) {
	if r == nil {
		return
	}
	r.eutilsRequests.WithLabelValues(endpoint, statusLabel(status)).Inc()
}

func (r *Recorder) ArticlesFetched(n int) {
	if r == nil {
		return
	}
	r.articlesFetched.Add(float64(n))
}

func (r *Recorder) Assessment(provider, outcome string) {
	if r == nil {
		return
	}
	r.assessments.WithLabelValues(provider, outcome).Inc()
}

func (r *Recorder) LLMDuration(provider string, d time.Duration) {
	if r == nil {
		return
	}
	r.llmDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (r *Recorder) LLMRetry(provider string) {
	if r == nil {
		return
	}
	r.llmRetries.WithLabelValues(provider).Inc()
}

// StageCompleted stamps the completion time of a stage.
func (r *Recorder) StageCompleted(stage string, at time.Time) {
	if r == nil {
		return
	}
	r.lastRun.WithLabelValues(stage).Set(float64(at.Unix()))
}

// WriteTextfile writes the registry in the Prometheus text format to path.
// The write is atomic so a collector never reads a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

func statusLabel(status int) string {
	switch {
	case status == 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 500:
		if status == 429 {
			return "429"
		}
		return "4xx"
	default:
		return "5xx"
	}
}
