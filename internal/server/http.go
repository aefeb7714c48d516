package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TEAMuP-dev/HARP-sub001/internal/audio"
	"github.com/TEAMuP-dev/HARP-sub001/internal/config"
	"github.com/TEAMuP-dev/HARP-sub001/internal/inference"
	"github.com/TEAMuP-dev/HARP-sub001/internal/metrics"
	"github.com/TEAMuP-dev/HARP-sub001/internal/pipeline"
	"github.com/TEAMuP-dev/HARP-sub001/internal/protocol"
	"github.com/TEAMuP-dev/HARP-sub001/internal/remote"
	"github.com/TEAMuP-dev/HARP-sub001/internal/tensor"
)

const (
	serviceName     = "wave2wave"
	contentTypeYAML = "application/yaml"
)

// HTTPServer provides the processing API and monitoring endpoints
type HTTPServer struct {
	server   *http.Server
	handler  http.Handler
	logger   *slog.Logger
	config   *config.Config
	pipeline *pipeline.Manager
	metrics  *metrics.Metrics
	maxBody  int64

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, mgr *pipeline.Manager, m *metrics.Metrics) *HTTPServer {

	if logger == nil {
		logger = slog.Default()
	}

	h := &HTTPServer{
		logger:    logger.With(slog.String("component", "http")),
		config:    appConfig,
		pipeline:  mgr,
		metrics:   m,
		maxBody:   cfg.GetMaxBodyBytes(),
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)
	h.handler = mux

	h.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return h
}

// Handler returns the routed handler
func (h *HTTPServer) Handler() http.Handler {
	return h.handler
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /process/{name}", h.withMetrics("/process/{name}", h.handleProcess))

	mux.HandleFunc("GET /health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("GET /pipelines", h.withMetrics("/pipelines", h.handlePipelines))
	mux.HandleFunc("GET /config", h.withMetrics("/config", h.handleConfig))

	// Prometheus metrics endpoint (not instrumented itself)
	mux.Handle("GET /metrics", h.metrics.Handler())

	mux.HandleFunc("GET /{$}", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		h.metrics.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(ww.statusCode), duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleProcess implements POST /process/{name}
func (h *HTTPServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if id := r.Header.Get(protocol.HeaderRequestID); id != "" {
		w.Header().Set(protocol.HeaderRequestID, id)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	buf, info, err := audio.DecodeWAV(body)
	if err != nil {
		http.Error(w, "Invalid WAV body: "+err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	if err := h.pipeline.Process(r.Context(), name, buf, info.SampleRate); err != nil {
		status := statusFor(err)
		h.logger.Warn("Process request failed",
			slog.String("pipeline", name),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		http.Error(w, err.Error(), status)
		return
	}

	out, err := audio.EncodeWAV("", buf, info.SampleRate)
	if err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("Process request completed",
		slog.String("pipeline", name),
		slog.Int("sample_rate", info.SampleRate),
		slog.Int("channels", buf.NumChannels()),
		slog.Int("samples", buf.NumSamples()),
		slog.Duration("elapsed", time.Since(start)),
	)

	w.Header().Set("Content-Type", protocol.ContentTypeWAV)
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// statusFor maps a processing error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrUnknownPipeline):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrClosed),
		errors.Is(err, inference.ErrNotReady),
		errors.Is(err, inference.ErrModelLoad):
		return http.StatusServiceUnavailable
	case errors.Is(err, inference.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, remote.ErrTransport),
		errors.Is(err, remote.ErrSampleRateMismatch):
		return http.StatusBadGateway
	case errors.Is(err, tensor.ErrShape),
		errors.Is(err, inference.ErrInference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name": serviceName,
		},
		"components": map[string]interface{}{
			"pipeline_manager": map[string]interface{}{
				"status":           "running",
				"configured":       len(h.pipeline.Names()),
				"active_pipelines": h.pipeline.GetActivePipelineCount(),
			},
		},
	}

	writeJSON(w, health)
}

// handlePipelines implements the /pipelines endpoint
func (h *HTTPServer) handlePipelines(w http.ResponseWriter, r *http.Request) {
	infos := h.pipeline.Info()

	response := map[string]interface{}{
		"total_pipelines": len(infos),
		"timestamp":       time.Now().UTC(),
		"pipelines":       infos,
	}

	writeJSON(w, response)
}

// handleConfig implements the /config endpoint. The configuration is served
// in its file format with API keys masked.
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if h.config == nil {
		http.Error(w, "No configuration loaded", http.StatusNotFound)
		return
	}
	out, err := yaml.Marshal(h.config.Sanitized())
	if err != nil {
		http.Error(w, "Failed to encode configuration", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeYAML)
	_, _ = w.Write(out)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	apiDoc := map[string]interface{}{
		"service": serviceName,
		"endpoints": map[string]interface{}{
			"GET /":                "API documentation",
			"GET /health":          "Service health check",
			"GET /pipelines":       "List configured pipelines",
			"GET /config":          "Get service configuration (YAML)",
			"GET /metrics":         "Prometheus metrics",
			"POST /process/{name}": "Process a WAV body with the named pipeline",
		},
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, apiDoc)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", protocol.ContentTypeJSON)
	_ = json.NewEncoder(w).Encode(v)
}
