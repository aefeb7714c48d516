package audio

import (
	"errors"
	"fmt"
)

// ErrRaggedChannels is returned when channels do not share one sample count
var ErrRaggedChannels = errors.New("audio: channels have different sample counts")

// Buffer is a channel-major block of float32 samples.
//
// Every channel holds the same number of samples. The buffer is owned by the
// host; processors receive a pointer to it for the duration of one call and
// may resize it, but never leave it with channels of different lengths.
type Buffer struct {
	channels [][]float32
	samples  int
}

// NewBuffer allocates a zeroed buffer of the given shape
func NewBuffer(numChannels, numSamples int) *Buffer {
	b := &Buffer{}
	b.SetSize(numChannels, numSamples)
	return b
}

// FromChannels builds a buffer from per-channel sample slices.
// The samples are copied; the input slices are not retained.
func FromChannels(channels [][]float32) (*Buffer, error) {
	if len(channels) == 0 {
		return &Buffer{}, nil
	}

	n := len(channels[0])
	for i, ch := range channels {
		if len(ch) != n {
			return nil, fmt.Errorf("%w: channel %d has %d samples, channel 0 has %d",
				ErrRaggedChannels, i, len(ch), n)
		}
	}

	b := NewBuffer(len(channels), n)
	for i, ch := range channels {
		copy(b.channels[i], ch)
	}
	return b, nil
}

// NumChannels returns the channel count
func (b *Buffer) NumChannels() int {
	return len(b.channels)
}

// NumSamples returns the per-channel sample count
func (b *Buffer) NumSamples() int {
	return b.samples
}

// Channel returns the samples of channel i. The slice aliases the buffer.
func (b *Buffer) Channel(i int) []float32 {
	return b.channels[i]
}

// SetSize reshapes the buffer to numChannels x numSamples.
// Storage is reallocated and zeroed; previous content is discarded.
func (b *Buffer) SetSize(numChannels, numSamples int) {
	if numChannels < 0 {
		numChannels = 0
	}
	if numSamples < 0 {
		numSamples = 0
	}

	backing := make([]float32, numChannels*numSamples)
	b.channels = make([][]float32, numChannels)
	for i := range b.channels {
		b.channels[i] = backing[i*numSamples : (i+1)*numSamples : (i+1)*numSamples]
	}
	b.samples = numSamples
}

// CopyFrom replaces the content and shape of b with a copy of src
func (b *Buffer) CopyFrom(src *Buffer) {
	b.SetSize(src.NumChannels(), src.NumSamples())
	for i := range b.channels {
		copy(b.channels[i], src.channels[i])
	}
}

// Clone returns a deep copy of the buffer
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{}
	c.CopyFrom(b)
	return c
}

// Equal reports whether both buffers have the same shape and bit-identical samples
func (b *Buffer) Equal(other *Buffer) bool {
	if b.NumChannels() != other.NumChannels() || b.NumSamples() != other.NumSamples() {
		return false
	}
	for i := range b.channels {
		for j, v := range b.channels[i] {
			if v != other.channels[i][j] {
				return false
			}
		}
	}
	return true
}

// Duration returns the buffer length in seconds at the given sample rate
func (b *Buffer) Duration(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(b.samples) / float64(sampleRate)
}

// Interleave returns the samples frame by frame (c0 c1 ... c0 c1 ...)
func (b *Buffer) Interleave() []float32 {
	nc := b.NumChannels()
	out := make([]float32, nc*b.samples)
	for i := 0; i < b.samples; i++ {
		for c := 0; c < nc; c++ {
			out[i*nc+c] = b.channels[c][i]
		}
	}
	return out
}

// Deinterleave builds a buffer from frame-ordered samples.
// A trailing partial frame is dropped.
func Deinterleave(data []float32, numChannels int) (*Buffer, error) {
	if numChannels <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", numChannels)
	}

	frames := len(data) / numChannels
	b := NewBuffer(numChannels, frames)
	for i := 0; i < frames; i++ {
		for c := 0; c < numChannels; c++ {
			b.channels[c][i] = data[i*numChannels+c]
		}
	}
	return b, nil
}
