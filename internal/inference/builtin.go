package inference

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/TEAMuP-dev/HARP-sub001/internal/tensor"
)

// identityGraph returns a copy of its first input tensor
type identityGraph struct{}

func (identityGraph) Run(_ context.Context, inputs []Value) (Value, error) {
	if len(inputs) == 0 {
		return Value{}, fmt.Errorf("identity graph needs one input")
	}
	t, err := inputs[0].Tensor()
	if err != nil {
		return Value{}, err
	}
	return TensorValue(t.Clone()), nil
}

func (identityGraph) Close() error { return nil }

// resampleGraph converts a (channels, samples) waveform between sample rates.
// Inputs are the waveform, the source rate and the target rate; the output
// has round(samples * target / source) samples per channel.
type resampleGraph struct {
	quality resampling.QualityPreset
	logger  *slog.Logger
}

func (g *resampleGraph) Run(ctx context.Context, inputs []Value) (Value, error) {
	if len(inputs) != 3 {
		return Value{}, fmt.Errorf("resample graph needs 3 inputs (waveform, source rate, target rate), got %d", len(inputs))
	}

	waveform, err := inputs[0].Tensor()
	if err != nil {
		return Value{}, err
	}
	if waveform.Dims() != 2 {
		return Value{}, fmt.Errorf("%w: waveform must be (channels, samples), got %v", tensor.ErrShape, waveform.Shape())
	}

	sourceRate, err := inputs[1].Scalar()
	if err != nil {
		return Value{}, err
	}
	targetRate, err := inputs[2].Scalar()
	if err != nil {
		return Value{}, err
	}
	if sourceRate <= 0 || targetRate <= 0 {
		return Value{}, fmt.Errorf("sample rates must be positive, got %g -> %g", sourceRate, targetRate)
	}

	channels, samples := waveform.Size(0), waveform.Size(1)
	outSamples := int(math.Round(float64(samples) * float64(targetRate) / float64(sourceRate)))

	out, err := tensor.New(channels, outSamples)
	if err != nil {
		return Value{}, err
	}
	if sourceRate == targetRate {
		copy(out.Data(), waveform.Data())
		return TensorValue(out), nil
	}

	for c := 0; c < channels; c++ {
		if err := ctx.Err(); err != nil {
			return Value{}, err
		}

		in, _ := waveform.Row(c)
		resampled, err := g.resampleChannel(in, float64(sourceRate), float64(targetRate))
		if err != nil {
			return Value{}, fmt.Errorf("channel %d: %w", c, err)
		}

		row, _ := out.Row(c)
		g.fitRow(row, resampled, c)
	}
	return TensorValue(out), nil
}

// fitRow copies resampled into row. The filter can emit a few samples more or
// less than the exact ratio; extra samples are dropped and a short row is
// padded with the last sample rather than silence.
func (g *resampleGraph) fitRow(row, resampled []float32, channel int) {
	n := copy(row, resampled)
	if len(resampled) == len(row) {
		return
	}

	logger := g.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Resampled length differs from expected",
		slog.String("component", "resample_graph"),
		slog.Int("channel", channel),
		slog.Int("expected", len(row)),
		slog.Int("got", len(resampled)))

	if n == 0 || n == len(row) {
		return
	}
	last := row[n-1]
	for i := n; i < len(row); i++ {
		row[i] = last
	}
}

func (g *resampleGraph) resampleChannel(in []float32, sourceRate, targetRate float64) ([]float32, error) {
	r, err := resampling.New(&resampling.Config{
		InputRate:  sourceRate,
		OutputRate: targetRate,
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: g.quality},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	input := make([]float64, len(in))
	for i, v := range in {
		input[i] = float64(v)
	}

	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resampling failed: %w", err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("resampler flush failed: %w", err)
	}
	output = append(output, tail...)

	result := make([]float32, len(output))
	for i, v := range output {
		result[i] = float32(v)
	}
	return result, nil
}

func (g *resampleGraph) Close() error { return nil }
