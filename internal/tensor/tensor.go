package tensor

import (
	"errors"
	"fmt"
	"slices"
)

// ErrShape is returned when a tensor does not have the shape an operation needs
var ErrShape = errors.New("tensor: shape mismatch")

// Tensor is an n-dimensional array of float32 values stored in row-major order
type Tensor struct {
	shape []int
	data  []float32
}

// New allocates a zeroed tensor. Negative dimensions are rejected.
func New(shape ...int) (*Tensor, error) {
	size, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	return &Tensor{
		shape: slices.Clone(shape),
		data:  make([]float32, size),
	}, nil
}

// FromData wraps a copy of data with the given shape
func FromData(data []float32, shape ...int) (*Tensor, error) {
	size, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	if size != len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrShape, shape, size, len(data))
	}
	return &Tensor{
		shape: slices.Clone(shape),
		data:  slices.Clone(data),
	}, nil
}

// Dims returns the number of dimensions
func (t *Tensor) Dims() int {
	return len(t.shape)
}

// Size returns the extent of dimension i
func (t *Tensor) Size(i int) int {
	return t.shape[i]
}

// Shape returns a copy of the shape
func (t *Tensor) Shape() []int {
	return slices.Clone(t.shape)
}

// Len returns the total number of elements
func (t *Tensor) Len() int {
	return len(t.data)
}

// Data returns the flat storage. The slice aliases the tensor.
func (t *Tensor) Data() []float32 {
	return t.data
}

// Row returns row i of a 2-D tensor. The slice aliases the tensor.
func (t *Tensor) Row(i int) ([]float32, error) {
	if t.Dims() != 2 {
		return nil, fmt.Errorf("%w: Row needs a 2-D tensor, got shape %v", ErrShape, t.shape)
	}
	if i < 0 || i >= t.shape[0] {
		return nil, fmt.Errorf("%w: row %d out of range [0, %d)", ErrShape, i, t.shape[0])
	}
	cols := t.shape[1]
	return t.data[i*cols : (i+1)*cols : (i+1)*cols], nil
}

// Reshape returns a tensor sharing t's data under a new shape
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	size, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	if size != len(t.data) {
		return nil, fmt.Errorf("%w: cannot reshape %v to %v", ErrShape, t.shape, shape)
	}
	return &Tensor{shape: slices.Clone(shape), data: t.data}, nil
}

// Clone returns a deep copy
func (t *Tensor) Clone() *Tensor {
	return &Tensor{shape: slices.Clone(t.shape), data: slices.Clone(t.data)}
}

// Equal reports whether both tensors have the same shape and bit-identical values
func (t *Tensor) Equal(other *Tensor) bool {
	return slices.Equal(t.shape, other.shape) && slices.Equal(t.data, other.data)
}

// MeanChannels averages the rows of a 2-D (channels, samples) tensor into a
// (1, samples) tensor.
func (t *Tensor) MeanChannels() (*Tensor, error) {
	if t.Dims() != 2 {
		return nil, fmt.Errorf("%w: downmix needs a 2-D tensor, got shape %v", ErrShape, t.shape)
	}

	channels, samples := t.shape[0], t.shape[1]
	out := &Tensor{shape: []int{1, samples}, data: make([]float32, samples)}
	if channels == 0 {
		return out, nil
	}

	for c := 0; c < channels; c++ {
		row := t.data[c*samples : (c+1)*samples]
		for i, v := range row {
			out.data[i] += v
		}
	}

	scale := 1 / float32(channels)
	for i := range out.data {
		out.data[i] *= scale
	}
	return out, nil
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.shape)
}

func numElements(shape []int) (int, error) {
	size := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension in %v", ErrShape, shape)
		}
		size *= d
	}
	return size, nil
}
