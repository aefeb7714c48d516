package wave2wave

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TEAMuP-dev/HARP-sub001/internal/audio"
	"github.com/TEAMuP-dev/HARP-sub001/internal/inference"
	"github.com/TEAMuP-dev/HARP-sub001/internal/tensor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// funcGraph runs an arbitrary function as a graph
type funcGraph func(inputs []inference.Value) (inference.Value, error)

func (f funcGraph) Run(_ context.Context, inputs []inference.Value) (inference.Value, error) {
	return f(inputs)
}

func (f funcGraph) Close() error { return nil }

func localWith(t *testing.T, g inference.Graph) *Local {
	t.Helper()
	backend := inference.NewBackend(inference.LoaderFunc(func(inference.LocalConfig) (inference.Graph, error) {
		return g, nil
	}), testLogger(), nil)
	require.NoError(t, backend.Load(inference.LocalConfig{ModelPath: "test"}))
	return NewLocal(backend, nil, testLogger())
}

func stereo(samples int) *audio.Buffer {
	buf := audio.NewBuffer(2, samples)
	for i := 0; i < samples; i++ {
		buf.Channel(0)[i] = float32(i%100) / 100
		buf.Channel(1)[i] = -float32(i%50) / 200
	}
	return buf
}

func TestLocalIdentityDownmixes(t *testing.T) {
	backend := inference.NewBackend(nil, testLogger(), nil)
	require.NoError(t, backend.Load(inference.LocalConfig{ModelPath: "builtin:identity"}))
	l := NewLocal(backend, nil, testLogger())

	buf := stereo(1000)
	want := make([]float32, 1000)
	for i := range want {
		want[i] = (buf.Channel(0)[i] + buf.Channel(1)[i]) * 0.5
	}

	require.NoError(t, l.Process(context.Background(), buf, 16000))
	assert.Equal(t, 1, buf.NumChannels())
	assert.Equal(t, 1000, buf.NumSamples())
	assert.Equal(t, want, buf.Channel(0))
}

func TestLocalOutputShapeReplacesBuffer(t *testing.T) {
	l := localWith(t, funcGraph(func(inputs []inference.Value) (inference.Value, error) {
		out, err := tensor.New(2, 10)
		if err != nil {
			return inference.Value{}, err
		}
		for i := range out.Data() {
			out.Data()[i] = 0.25
		}
		return inference.TensorValue(out), nil
	}))

	buf := stereo(500)
	require.NoError(t, l.Process(context.Background(), buf, 44100))
	assert.Equal(t, 2, buf.NumChannels())
	assert.Equal(t, 10, buf.NumSamples())
	assert.Equal(t, float32(0.25), buf.Channel(1)[9])
}

func TestLocalFailuresLeaveBufferUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		graph   funcGraph
		wantErr error
	}{
		{
			name: "forward error",
			graph: func([]inference.Value) (inference.Value, error) {
				return inference.Value{}, errors.New("out of memory")
			},
			wantErr: inference.ErrInference,
		},
		{
			name:    "forward panic",
			graph:   func([]inference.Value) (inference.Value, error) { panic("segfault") },
			wantErr: inference.ErrInference,
		},
		{
			name: "scalar output",
			graph: func([]inference.Value) (inference.Value, error) {
				return inference.ScalarValue(1), nil
			},
			wantErr: tensor.ErrShape,
		},
		{
			name: "3-D output",
			graph: func([]inference.Value) (inference.Value, error) {
				out, _ := tensor.New(1, 1, 1000)
				return inference.TensorValue(out), nil
			},
			wantErr: tensor.ErrShape,
		},
		{
			name: "1-D output",
			graph: func([]inference.Value) (inference.Value, error) {
				out, _ := tensor.New(1000)
				return inference.TensorValue(out), nil
			},
			wantErr: tensor.ErrShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := localWith(t, tt.graph)
			original := stereo(256)
			buf := original.Clone()

			err := l.Process(context.Background(), buf, 16000)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, buf.Equal(original))
		})
	}
}

func TestLocalNotReady(t *testing.T) {
	l := NewLocal(inference.NewBackend(nil, testLogger(), nil), nil, testLogger())
	assert.False(t, l.Ready())

	original := stereo(10)
	buf := original.Clone()
	require.ErrorIs(t, l.Process(context.Background(), buf, 16000), inference.ErrNotReady)
	assert.True(t, buf.Equal(original))
}

func TestLocalRejectsInvalidSampleRate(t *testing.T) {
	l := localWith(t, funcGraph(func(inputs []inference.Value) (inference.Value, error) {
		return inputs[0], nil
	}))
	buf := stereo(10)
	require.ErrorIs(t, l.Process(context.Background(), buf, 0), inference.ErrConfiguration)
}

func TestLocalModelSampleRate(t *testing.T) {
	resampler, err := inference.NewDSPResampler(testLogger(), nil)
	require.NoError(t, err)

	var seen []int
	backend := inference.NewBackend(inference.LoaderFunc(func(inference.LocalConfig) (inference.Graph, error) {
		return funcGraph(func(inputs []inference.Value) (inference.Value, error) {
			x, err := inputs[0].Tensor()
			if err != nil {
				return inference.Value{}, err
			}
			seen = x.Shape()
			return inference.TensorValue(x.Clone()), nil
		}), nil
	}), testLogger(), nil)
	require.NoError(t, backend.Load(inference.LocalConfig{ModelPath: "rate-test"}))

	l := NewLocal(backend, resampler, testLogger())
	l.ModelSampleRate = 16000

	buf := stereo(4410)
	require.NoError(t, l.Process(context.Background(), buf, 44100))

	assert.Equal(t, []int{1, 1600}, seen)
	assert.Equal(t, 1, buf.NumChannels())
	assert.Equal(t, 4410, buf.NumSamples())
}

// flakyResampler returns a resampler whose graph fails on call failOn and
// passes the waveform through otherwise
func flakyResampler(t *testing.T, failOn int) *inference.Resampler {
	t.Helper()
	calls := 0
	backend := inference.NewBackend(inference.LoaderFunc(func(inference.LocalConfig) (inference.Graph, error) {
		return funcGraph(func(inputs []inference.Value) (inference.Value, error) {
			calls++
			if calls == failOn {
				return inference.Value{}, errors.New("resampler crashed")
			}
			return inputs[0], nil
		}), nil
	}), testLogger(), nil)
	require.NoError(t, backend.Load(inference.LocalConfig{ModelPath: "flaky-resampler"}))
	return inference.NewResampler(backend, testLogger(), nil)
}

func TestLocalResampleFailureLeavesBufferUnchanged(t *testing.T) {
	tests := []struct {
		name        string
		failOn      int
		wantForward bool
	}{
		{name: "to model rate", failOn: 1, wantForward: false},
		{name: "back to host rate", failOn: 2, wantForward: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forwarded := false
			backend := inference.NewBackend(inference.LoaderFunc(func(inference.LocalConfig) (inference.Graph, error) {
				return funcGraph(func(inputs []inference.Value) (inference.Value, error) {
					forwarded = true
					return inputs[0], nil
				}), nil
			}), testLogger(), nil)
			require.NoError(t, backend.Load(inference.LocalConfig{ModelPath: "model"}))

			l := NewLocal(backend, flakyResampler(t, tt.failOn), testLogger())
			l.ModelSampleRate = 16000

			original := stereo(441)
			buf := original.Clone()
			err := l.Process(context.Background(), buf, 44100)
			require.ErrorIs(t, err, inference.ErrInference)
			assert.True(t, buf.Equal(original))
			assert.Equal(t, tt.wantForward, forwarded)
		})
	}
}

func TestLocalModelSampleRateWithoutResampler(t *testing.T) {
	forwarded := false
	l := localWith(t, funcGraph(func(inputs []inference.Value) (inference.Value, error) {
		forwarded = true
		return inputs[0], nil
	}))
	l.ModelSampleRate = 16000

	original := stereo(100)
	buf := original.Clone()
	require.ErrorIs(t, l.Process(context.Background(), buf, 44100), inference.ErrConfiguration)
	assert.True(t, buf.Equal(original))
	assert.False(t, forwarded)
}

func TestLocalClose(t *testing.T) {
	backend := inference.NewBackend(nil, testLogger(), nil)
	require.NoError(t, backend.Load(inference.LocalConfig{ModelPath: "builtin:identity"}))
	l := NewLocal(backend, nil, testLogger())
	assert.True(t, l.Ready())
	assert.Same(t, backend, l.Backend())

	require.NoError(t, l.Close())
	assert.False(t, l.Ready())
}

func TestProcessorImplementations(t *testing.T) {
	var _ Processor = (*Local)(nil)
	var _ Processor = (*Remote)(nil)
}
