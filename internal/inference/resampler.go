package inference

import (
	"context"
	"io"
	"log/slog"

	"github.com/TEAMuP-dev/HARP-sub001/internal/metrics"
	"github.com/TEAMuP-dev/HARP-sub001/internal/tensor"
)

// Forwarder runs a loaded graph. *Backend implements it.
type Forwarder interface {
	Forward(ctx context.Context, inputs ...Value) (Value, error)
}

// Resampler converts waveforms between sample rates with a resampling graph.
// The graph takes (waveform, source rate, target rate) and returns the
// resampled waveform.
type Resampler struct {
	model   Forwarder
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewResampler wraps a backend holding a resampling graph
func NewResampler(model Forwarder, logger *slog.Logger, m *metrics.Metrics) *Resampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resampler{
		model:   model,
		logger:  logger.With(slog.String("component", "resampler")),
		metrics: m,
	}
}

// NewDSPResampler returns a Resampler backed by the built-in resample graph
func NewDSPResampler(logger *slog.Logger, m *metrics.Metrics) (*Resampler, error) {
	backend := NewBackend(nil, logger, m)
	if err := backend.Load(LocalConfig{ModelPath: BuiltinPrefix + GraphResample}); err != nil {
		return nil, err
	}
	return NewResampler(backend, logger, m), nil
}

// Close releases the underlying model when it owns resources
func (r *Resampler) Close() error {
	if r == nil {
		return nil
	}
	if c, ok := r.model.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Resample converts waveform from sourceRate to targetRate.
//
// Equal rates return waveform itself without calling the model. Any failure
// is logged and also returns waveform unchanged, so callers always get
// usable audio back.
func (r *Resampler) Resample(ctx context.Context, waveform *tensor.Tensor, sourceRate, targetRate int) *tensor.Tensor {
	if sourceRate == targetRate {
		return waveform
	}

	t, err := r.Convert(ctx, waveform, sourceRate, targetRate)
	if err == nil {
		return t
	}

	r.metrics.RecordResampleFallback()
	r.logger.Error("Resampling failed, returning input unchanged",
		slog.Int("source_rate", sourceRate),
		slog.Int("target_rate", targetRate),
		slog.String("error", err.Error()))
	return waveform
}

// Convert is Resample with failures reported instead of absorbed. Equal
// rates still return waveform without calling the model.
func (r *Resampler) Convert(ctx context.Context, waveform *tensor.Tensor, sourceRate, targetRate int) (*tensor.Tensor, error) {
	if sourceRate == targetRate {
		return waveform, nil
	}
	if r.model == nil {
		return nil, ErrNotReady
	}

	out, err := r.model.Forward(ctx,
		TensorValue(waveform),
		ScalarValue(float32(sourceRate)),
		ScalarValue(float32(targetRate)))
	if err != nil {
		return nil, err
	}
	return out.Tensor()
}
