package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TEAMuP-dev/HARP-sub001/internal/protocol"
)

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{MaxRetries: 3, BackoffBase: time.Millisecond}, testLogger(), nil)
	body, err := c.Predict(context.Background(), srv.URL, protocol.NewPredictRequest("a.wav", []byte{1}))
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), body)
	assert.Equal(t, int32(3), calls.Load())

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.TotalRequests)
	assert.Equal(t, uint64(1), stats.SuccessRequests)
	assert.Equal(t, uint64(2), stats.TotalRetries)
	assert.Equal(t, 100.0, stats.SuccessRate)
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{MaxRetries: 3, BackoffBase: time.Millisecond}, testLogger(), nil)
	_, err := c.Predict(context.Background(), srv.URL, protocol.NewPredictRequest("a.wav", []byte{1}))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "bad payload", statusErr.Body)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), c.Stats().FailedRequests)
}

func TestClientDefaultIsSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{}, testLogger(), nil)
	_, err := c.Predict(context.Background(), srv.URL, protocol.NewPredictRequest("a.wav", []byte{1}))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{MaxRetries: 5, BackoffBase: time.Hour}, testLogger(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Predict(ctx, srv.URL, protocol.NewPredictRequest("a.wav", []byte{1}))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(&StatusError{StatusCode: 500}))
	assert.True(t, isRetryableError(&StatusError{StatusCode: 429}))
	assert.False(t, isRetryableError(&StatusError{StatusCode: 404}))
	assert.True(t, isRetryableError(context.DeadlineExceeded))
	assert.False(t, isRetryableError(errors.New("plain")))
}

func TestStatusErrorMessage(t *testing.T) {
	assert.Equal(t, "HTTP error 502", (&StatusError{StatusCode: 502}).Error())
	assert.Equal(t, "HTTP error 400: nope", (&StatusError{StatusCode: 400, Body: "nope"}).Error())
}
