package tensor

import (
	"fmt"

	"github.com/TEAMuP-dev/HARP-sub001/internal/audio"
)

// FromBuffer copies buf into a new (channels, samples) tensor
func FromBuffer(buf *audio.Buffer) *Tensor {
	channels, samples := buf.NumChannels(), buf.NumSamples()
	t := &Tensor{
		shape: []int{channels, samples},
		data:  make([]float32, channels*samples),
	}
	for c := 0; c < channels; c++ {
		copy(t.data[c*samples:(c+1)*samples], buf.Channel(c))
	}
	return t
}

// ToBuffer resizes buf to the tensor's (channels, samples) shape and copies
// the values in. A tensor that is not 2-D is rejected before buf is touched.
func ToBuffer(t *Tensor, buf *audio.Buffer) error {
	if t.Dims() != 2 {
		return fmt.Errorf("%w: expected a 2-D (channels, samples) tensor, got %d dimensions %v",
			ErrShape, t.Dims(), t.shape)
	}

	channels, samples := t.shape[0], t.shape[1]
	buf.SetSize(channels, samples)
	for c := 0; c < channels; c++ {
		copy(buf.Channel(c), t.data[c*samples:(c+1)*samples])
	}
	return nil
}
