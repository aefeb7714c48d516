package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics contains all Prometheus metrics for the wave2wave service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Processing metrics
	ProcessCalls    *prometheus.CounterVec
	ProcessDuration *prometheus.HistogramVec
	ProcessedAudio  *prometheus.CounterVec

	// Model metrics
	ModelLoads        *prometheus.CounterVec
	ForwardDuration   prometheus.Histogram
	ResampleFallbacks prometheus.Counter

	// Pipeline metrics
	ActivePipelines  prometheus.Gauge
	PipelinesCreated prometheus.Counter
	PipelinesClosed  prometheus.Counter

	// Remote inference metrics
	RemoteRequests *prometheus.CounterVec
	RemoteDuration prometheus.Histogram
	RemoteRetries  prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics on a fresh registry that also carries the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewMetricsWithRegistry(reg)
}

// NewMetricsWithRegistry creates and registers all metrics on reg
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Processing metrics
		ProcessCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wave2wave_process_calls_total",
			Help: "Total number of process calls by backend and outcome",
		}, []string{"backend", "outcome"}),
		ProcessDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wave2wave_process_duration_seconds",
			Help:    "Duration of process calls",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		}, []string{"backend"}),
		ProcessedAudio: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wave2wave_processed_audio_seconds_total",
			Help: "Total seconds of audio successfully processed",
		}, []string{"backend"}),

		// Model metrics
		ModelLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wave2wave_model_loads_total",
			Help: "Total number of model load attempts by backend and outcome",
		}, []string{"backend", "outcome"}),
		ForwardDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wave2wave_forward_duration_seconds",
			Help:    "Time spent in local inference forward passes",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		ResampleFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "wave2wave_resample_fallbacks_total",
			Help: "Total number of resampling failures that returned the input unchanged",
		}),

		// Pipeline metrics
		ActivePipelines: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wave2wave_active_pipelines",
			Help: "Current number of loaded pipelines",
		}),
		PipelinesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "wave2wave_pipelines_created_total",
			Help: "Total number of pipelines loaded",
		}),
		PipelinesClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "wave2wave_pipelines_closed_total",
			Help: "Total number of pipelines closed",
		}),

		// Remote inference metrics
		RemoteRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wave2wave_remote_requests_total",
			Help: "Total number of remote inference requests by outcome",
		}, []string{"outcome"}),
		RemoteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wave2wave_remote_request_duration_seconds",
			Help:    "Duration of remote inference requests",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}),
		RemoteRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "wave2wave_remote_retries_total",
			Help: "Total number of remote inference request retries",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wave2wave_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wave2wave_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wave2wave_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordProcess records one process call
func (m *Metrics) RecordProcess(backend string, err error, durationSeconds, audioSeconds float64) {
	if m == nil {
		return
	}
	m.ProcessCalls.WithLabelValues(backend, outcome(err)).Inc()
	m.ProcessDuration.WithLabelValues(backend).Observe(durationSeconds)
	if err == nil {
		m.ProcessedAudio.WithLabelValues(backend).Add(audioSeconds)
	}
}

// RecordModelLoad records a model load attempt
func (m *Metrics) RecordModelLoad(backend string, err error) {
	if m == nil {
		return
	}
	m.ModelLoads.WithLabelValues(backend, outcome(err)).Inc()
}

// RecordForward records the duration of a forward pass
func (m *Metrics) RecordForward(durationSeconds float64) {
	if m == nil {
		return
	}
	m.ForwardDuration.Observe(durationSeconds)
}

// RecordResampleFallback increments the resample fallback counter
func (m *Metrics) RecordResampleFallback() {
	if m == nil {
		return
	}
	m.ResampleFallbacks.Inc()
}

// SetActivePipelines sets the current number of loaded pipelines
func (m *Metrics) SetActivePipelines(count int) {
	if m == nil {
		return
	}
	m.ActivePipelines.Set(float64(count))
}

// RecordPipelineCreated increments the pipelines created counter
func (m *Metrics) RecordPipelineCreated() {
	if m == nil {
		return
	}
	m.PipelinesCreated.Inc()
}

// RecordPipelineClosed increments the pipelines closed counter
func (m *Metrics) RecordPipelineClosed() {
	if m == nil {
		return
	}
	m.PipelinesClosed.Inc()
}

// RecordRemoteRequest records a completed remote request
func (m *Metrics) RecordRemoteRequest(err error, durationSeconds float64) {
	if m == nil {
		return
	}
	m.RemoteRequests.WithLabelValues(outcome(err)).Inc()
	m.RemoteDuration.Observe(durationSeconds)
}

// RecordRemoteRetry increments the retry counter
func (m *Metrics) RecordRemoteRetry() {
	if m == nil {
		return
	}
	m.RemoteRetries.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
