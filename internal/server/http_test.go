package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TEAMuP-dev/HARP-sub001/internal/audio"
	"github.com/TEAMuP-dev/HARP-sub001/internal/config"
	"github.com/TEAMuP-dev/HARP-sub001/internal/inference"
	"github.com/TEAMuP-dev/HARP-sub001/internal/metrics"
	"github.com/TEAMuP-dev/HARP-sub001/internal/pipeline"
	"github.com/TEAMuP-dev/HARP-sub001/internal/remote"
	"github.com/TEAMuP-dev/HARP-sub001/internal/tensor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ramp(channels, samples int) *audio.Buffer {
	buf := audio.NewBuffer(channels, samples)
	for c := 0; c < channels; c++ {
		for i := range buf.Channel(c) {
			buf.Channel(c)[i] = float32(i%200)/400 - 0.25
		}
	}
	return buf
}

func encode(t *testing.T, buf *audio.Buffer, sampleRate int) []byte {
	t.Helper()
	data, err := audio.EncodeWAV(t.TempDir(), buf, sampleRate)
	require.NoError(t, err)
	return data
}

func assertClose(t *testing.T, want, got *audio.Buffer) {
	t.Helper()
	require.Equal(t, want.NumChannels(), got.NumChannels())
	require.Equal(t, want.NumSamples(), got.NumSamples())
	for c := 0; c < want.NumChannels(); c++ {
		for i, v := range want.Channel(c) {
			if math.Abs(float64(v-got.Channel(c)[i])) > 2.0/32768 {
				t.Fatalf("channel %d sample %d: want %f, got %f", c, i, v, got.Channel(c)[i])
			}
		}
	}
}

type testServer struct {
	*httptest.Server
	metrics *metrics.Metrics
	config  *config.Config
}

func newTestServer(t *testing.T, models ...config.ModelConfig) *testServer {
	t.Helper()

	cfg := &config.Config{Models: models}
	cfg.SetDefaults()

	m := metrics.NewMetrics()
	mgr, err := pipeline.NewManager(testLogger(), pipeline.ManagerConfig{
		Models:  cfg.Models,
		Factory: pipeline.NewFactory(nil, testLogger(), m),
	}, m)
	require.NoError(t, err)
	t.Cleanup(mgr.Stop)

	h := NewHTTPServer(cfg.HTTP, testLogger(), cfg, mgr, m)
	srv := httptest.NewServer(h.Handler())
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, metrics: m, config: cfg}
}

func identityModel() config.ModelConfig {
	return config.ModelConfig{
		Name:    "identity",
		Backend: config.BackendLocal,
		Local:   config.LocalModelConfig{ModelPath: "builtin:identity"},
	}
}

func postWAV(t *testing.T, url string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("X-Request-ID", "req-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestProcessLocalRoundTrip(t *testing.T) {
	srv := newTestServer(t, identityModel())
	in := ramp(1, 1600)

	resp := postWAV(t, srv.URL+"/process/identity", encode(t, in, 16000))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	assert.Equal(t, "req-1", resp.Header.Get("X-Request-ID"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out, info, err := audio.DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, 16000, info.SampleRate)
	assertClose(t, in, out)
}

func TestProcessDownmixesStereo(t *testing.T) {
	srv := newTestServer(t, identityModel())

	resp := postWAV(t, srv.URL+"/process/identity", encode(t, ramp(2, 800), 8000))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out, _, err := audio.DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, 1, out.NumChannels())
	assert.Equal(t, 800, out.NumSamples())
}

func TestProcessThroughEchoRemote(t *testing.T) {
	echo := httptest.NewServer(EchoHandler(testLogger()))
	defer echo.Close()

	srv := newTestServer(t, config.ModelConfig{
		Name:    "echo",
		Backend: config.BackendRemote,
		Remote:  config.RemoteModelConfig{URL: echo.URL, APIName: "/predict", TempDir: t.TempDir()},
	})
	in := ramp(2, 441)

	resp := postWAV(t, srv.URL+"/process/echo", encode(t, in, 44100))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out, info, err := audio.DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, 44100, info.SampleRate)
	assertClose(t, in, out)
}

func TestProcessErrors(t *testing.T) {
	srv := newTestServer(t, identityModel(), config.ModelConfig{
		Name:    "broken",
		Backend: config.BackendLocal,
		Local:   config.LocalModelConfig{ModelPath: "builtin:missing"},
	})

	tests := []struct {
		name   string
		path   string
		body   []byte
		status int
	}{
		{"unknown pipeline", "/process/nope", encode(t, ramp(1, 10), 8000), http.StatusNotFound},
		{"invalid wav", "/process/identity", []byte("not audio"), http.StatusBadRequest},
		{"load failure", "/process/broken", encode(t, ramp(1, 10), 8000), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postWAV(t, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestProcessBodyLimit(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{MaxBodyMB: 1}, Models: []config.ModelConfig{identityModel()}}
	mgr, err := pipeline.NewManager(testLogger(), pipeline.ManagerConfig{
		Models:  cfg.Models,
		Factory: pipeline.NewFactory(nil, testLogger(), nil),
	}, nil)
	require.NoError(t, err)
	defer mgr.Stop()
	handler := NewHTTPServer(cfg.HTTP, testLogger(), cfg, mgr, nil).Handler()

	large := encode(t, ramp(1, 600000), 16000)
	req := httptest.NewRequest(http.MethodPost, "/process/identity", bytes.NewReader(large))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	small := encode(t, ramp(1, 1000), 16000)
	req = httptest.NewRequest(http.MethodPost, "/process/identity", bytes.NewReader(small))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProcessMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, identityModel())

	resp, err := http.Get(srv.URL + "/process/identity")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthAndPipelines(t *testing.T) {
	srv := newTestServer(t, identityModel())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])

	postWAV(t, srv.URL+"/process/identity", encode(t, ramp(1, 100), 8000))

	resp, err = http.Get(srv.URL + "/pipelines")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Total     int                     `json:"total_pipelines"`
		Pipelines []pipeline.PipelineInfo `json:"pipelines"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "identity", body.Pipelines[0].Name)
	assert.True(t, body.Pipelines[0].Loaded)
	assert.Equal(t, uint64(1), body.Pipelines[0].Calls)
	require.NotNil(t, body.Pipelines[0].LocalStats)
	assert.Equal(t, uint64(1), body.Pipelines[0].LocalStats.Forwards)
	assert.Equal(t, "builtin:identity", body.Pipelines[0].LocalStats.ModelPath)
	assert.Nil(t, body.Pipelines[0].RemoteStats)
}

func TestConfigMasksAPIKeys(t *testing.T) {
	srv := newTestServer(t, config.ModelConfig{
		Name:    "remote",
		Backend: config.BackendRemote,
		Remote:  config.RemoteModelConfig{URL: "http://localhost:1", APIName: "/p", APIKey: "secret-token"},
	})

	resp, err := http.Get(srv.URL + "/config")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-token")
	assert.Contains(t, string(data), "***")
	assert.Equal(t, "secret-token", srv.config.Models[0].Remote.APIKey)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, identityModel())

	postWAV(t, srv.URL+"/process/identity", encode(t, ramp(1, 100), 8000))
	postWAV(t, srv.URL+"/process/nope", encode(t, ramp(1, 100), 8000))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "wave2wave_http_requests_total")
	assert.Contains(t, text, "wave2wave_http_errors_total")
	assert.Contains(t, text, "wave2wave_process_calls_total")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", pipeline.ErrUnknownPipeline), http.StatusNotFound},
		{pipeline.ErrClosed, http.StatusServiceUnavailable},
		{inference.ErrNotReady, http.StatusServiceUnavailable},
		{fmt.Errorf("load: %w", inference.ErrModelLoad), http.StatusServiceUnavailable},
		{inference.ErrConfiguration, http.StatusBadRequest},
		{fmt.Errorf("post: %w", remote.ErrTransport), http.StatusBadGateway},
		{remote.ErrSampleRateMismatch, http.StatusBadGateway},
		{tensor.ErrShape, http.StatusUnprocessableEntity},
		{inference.ErrInference, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
