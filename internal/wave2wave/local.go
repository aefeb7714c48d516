package wave2wave

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TEAMuP-dev/HARP-sub001/internal/audio"
	"github.com/TEAMuP-dev/HARP-sub001/internal/inference"
	"github.com/TEAMuP-dev/HARP-sub001/internal/tensor"
)

// Local runs buffers through a local inference backend.
//
// The buffer is downmixed to a (1, samples) tensor and fed to the graph,
// whose 2-D (channels, samples) output replaces the buffer. When
// ModelSampleRate is set, audio is resampled to that rate before the forward
// pass and back to the host rate afterwards.
type Local struct {
	backend   *inference.Backend
	resampler *inference.Resampler
	logger    *slog.Logger

	// ModelSampleRate is the rate the graph expects; 0 means any rate
	ModelSampleRate int
}

// NewLocal wraps a backend. The resampler is only used when ModelSampleRate is set.
func NewLocal(backend *inference.Backend, resampler *inference.Resampler, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{
		backend:   backend,
		resampler: resampler,
		logger:    logger.With(slog.String("component", "wave2wave"), slog.String("backend", BackendLocal)),
	}
}

// Backend returns the wrapped inference backend
func (l *Local) Backend() *inference.Backend {
	return l.backend
}

// Ready reports whether the backend holds a graph
func (l *Local) Ready() bool {
	return l.backend.Ready()
}

// Close releases the backend's graph
func (l *Local) Close() error {
	return l.backend.Close()
}

// Process transforms buf in place
func (l *Local) Process(ctx context.Context, buf *audio.Buffer, sampleRate int) error {
	out, err := l.transform(ctx, buf, sampleRate)
	if err != nil {
		l.logger.Error("Processing failed",
			slog.Int("channels", buf.NumChannels()),
			slog.Int("samples", buf.NumSamples()),
			slog.Int("sample_rate", sampleRate),
			slog.String("error", err.Error()))
		return err
	}

	// out is 2-D, so this cannot fail
	return tensor.ToBuffer(out, buf)
}

func (l *Local) transform(ctx context.Context, buf *audio.Buffer, sampleRate int) (*tensor.Tensor, error) {
	if !l.backend.Ready() {
		return nil, inference.ErrNotReady
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", inference.ErrConfiguration, sampleRate)
	}

	mono, err := tensor.FromBuffer(buf).MeanChannels()
	if err != nil {
		return nil, err
	}

	modelRate := sampleRate
	if l.ModelSampleRate > 0 {
		if l.resampler == nil {
			return nil, fmt.Errorf("%w: model sample rate %d Hz requires a resampler",
				inference.ErrConfiguration, l.ModelSampleRate)
		}
		modelRate = l.ModelSampleRate
	}

	mono, err = l.convert(ctx, mono, sampleRate, modelRate)
	if err != nil {
		return nil, err
	}

	value, err := l.backend.Forward(ctx, inference.TensorValue(mono))
	if err != nil {
		return nil, err
	}

	out, err := value.Tensor()
	if err != nil {
		return nil, err
	}
	if out.Dims() != 2 {
		return nil, fmt.Errorf("%w: model returned %d-D output %v, expected (channels, samples)",
			tensor.ErrShape, out.Dims(), out.Shape())
	}

	return l.convert(ctx, out, modelRate, sampleRate)
}

// convert bridges host and model rates. Failures are returned rather than
// passing audio through at the wrong rate.
func (l *Local) convert(ctx context.Context, t *tensor.Tensor, from, to int) (*tensor.Tensor, error) {
	if from == to {
		return t, nil
	}
	return l.resampler.Convert(ctx, t, from, to)
}
