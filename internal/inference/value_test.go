package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TEAMuP-dev/HARP-sub001/internal/tensor"
)

func TestValueDowncast(t *testing.T) {
	x, err := tensor.New(1, 4)
	require.NoError(t, err)

	tv := TensorValue(x)
	assert.True(t, tv.IsTensor())
	got, err := tv.Tensor()
	require.NoError(t, err)
	assert.Same(t, x, got)
	_, err = tv.Scalar()
	assert.ErrorIs(t, err, tensor.ErrShape)

	sv := ScalarValue(16000)
	assert.False(t, sv.IsTensor())
	_, err = sv.Tensor()
	assert.ErrorIs(t, err, tensor.ErrShape)
	s, err := sv.Scalar()
	require.NoError(t, err)
	assert.Equal(t, float32(16000), s)

	assert.Equal(t, "Tensor[1 4]", tv.String())
	assert.Equal(t, "Scalar(16000)", sv.String())
}
