package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordProcess(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.RecordProcess("local", nil, 0.01, 2)
	m.RecordProcess("local", errors.New("boom"), 0.01, 2)
	m.RecordProcess("remote", nil, 0.5, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProcessCalls.WithLabelValues("local", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProcessCalls.WithLabelValues("local", OutcomeFailure)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProcessedAudio.WithLabelValues("local")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProcessedAudio.WithLabelValues("remote")))
}

func TestCountersAndGauges(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.RecordResampleFallback()
	m.RecordRemoteRetry()
	m.RecordRemoteRetry()
	m.SetActivePipelines(3)
	m.RecordModelLoad("local", errors.New("missing"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResampleFallbacks))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RemoteRetries))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ActivePipelines))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelLoads.WithLabelValues("local", OutcomeFailure)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordProcess("local", nil, 1, 1)
		m.RecordModelLoad("local", nil)
		m.RecordForward(1)
		m.RecordResampleFallback()
		m.SetActivePipelines(1)
		m.RecordPipelineCreated()
		m.RecordPipelineClosed()
		m.RecordRemoteRequest(nil, 1)
		m.RecordRemoteRetry()
		m.RecordHTTPRequest("GET", "/health", "200", 0.1)
		m.RecordHTTPError("GET", "/health", "x")
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordPipelineCreated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "wave2wave_pipelines_created_total 1"))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
