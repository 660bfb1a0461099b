package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	requests       *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	marketLookups  *prometheus.CounterVec
	retrievedCount prometheus.Histogram
}

// New registers the pipeline metrics on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the pipeline metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finbrief_pipeline_requests_total",
				Help: "Processed pipeline requests by result",
			},
			[]string{"result"},
		),
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finbrief_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage", "status"},
		),
		marketLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finbrief_market_lookups_total",
				Help: "Market data lookups by result",
			},
			[]string{"result"},
		),
		retrievedCount: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "finbrief_retrieved_chunks",
				Help:    "Number of chunks selected for brief generation",
				Buckets: prometheus.LinearBuckets(0, 1, 11),
			},
		),
	}
}

// RecordRequest counts a finished request; result is ok, degraded or failed.
func (r *Recorder) RecordRequest(result string) {
	r.requests.WithLabelValues(result).Inc()
}

// RecordStage observes a stage duration.
func (r *Recorder) RecordStage(stage, status string, seconds float64) {
	r.stageDuration.WithLabelValues(stage, status).Observe(seconds)
}

// RecordMarketLookup counts a single company lookup.
func (r *Recorder) RecordMarketLookup(result string) {
	r.marketLookups.WithLabelValues(result).Inc()
}

// RecordRetrieved observes the size of the ranked chunk set.
func (r *Recorder) RecordRetrieved(n int) {
	r.retrievedCount.Observe(float64(n))
}
