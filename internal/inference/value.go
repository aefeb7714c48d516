package inference

import (
	"fmt"

	"github.com/TEAMuP-dev/HARP-sub001/internal/tensor"
)

// Value is a graph input or output: either a tensor or a float scalar
type Value struct {
	tensor *tensor.Tensor
	scalar float32
}

// TensorValue wraps a tensor
func TensorValue(t *tensor.Tensor) Value {
	return Value{tensor: t}
}

// ScalarValue wraps a scalar
func ScalarValue(v float32) Value {
	return Value{scalar: v}
}

// IsTensor reports whether the value holds a tensor
func (v Value) IsTensor() bool {
	return v.tensor != nil
}

// Tensor returns the held tensor, or tensor.ErrShape for a scalar
func (v Value) Tensor() (*tensor.Tensor, error) {
	if v.tensor == nil {
		return nil, fmt.Errorf("%w: value is a scalar, not a tensor", tensor.ErrShape)
	}
	return v.tensor, nil
}

// Scalar returns the held scalar, or tensor.ErrShape for a tensor
func (v Value) Scalar() (float32, error) {
	if v.tensor != nil {
		return 0, fmt.Errorf("%w: value is a tensor %v, not a scalar", tensor.ErrShape, v.tensor.Shape())
	}
	return v.scalar, nil
}

func (v Value) String() string {
	if v.tensor != nil {
		return v.tensor.String()
	}
	return fmt.Sprintf("Scalar(%g)", v.scalar)
}
