// Package metrics records pipeline and provider metrics in a private
// Prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Recorder is a Prometheus implementation of the pipeline and provider
// observer interfaces.
type Recorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	predictions   *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	probes        *prometheus.CounterVec
}

// NewRecorder creates a Recorder with Go and process collectors registered.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "energy_pipeline_stage_duration_seconds",
			Help:    "Duration of prediction pipeline stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode", "stage"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_predictions_total",
			Help: "Prediction requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_provider_fetch_total",
			Help: "Weather provider calls by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "energy_site_probe_total",
			Help: "Scheduled site probes by site and outcome.",
		}, []string{"site", "outcome"}),
	}

	registry.MustRegister(r.stageDuration)
	registry.MustRegister(r.predictions)
	registry.MustRegister(r.fetches)
	registry.MustRegister(r.probes)

	return r
}

// Registry returns the Prometheus registry backing r.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage records how long a pipeline stage took.
func (r *Recorder) ObserveStage(mode, stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(mode, stage).Observe(d.Seconds())
}

// ObservePrediction counts a finished prediction request.
func (r *Recorder) ObservePrediction(mode string, err error) {
	r.predictions.WithLabelValues(mode, outcome(err)).Inc()
}

// ObserveFetch counts a weather provider call.
func (r *Recorder) ObserveFetch(endpoint string, err error) {
	r.fetches.WithLabelValues(endpoint, outcome(err)).Inc()
}

// ObserveProbe counts a scheduled site probe.
func (r *Recorder) ObserveProbe(site string, err error) {
	r.probes.WithLabelValues(site, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeOK
}
