package backends

import (
	"testing"

	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestNewTensor(t *testing.T) {
	tensor, err := NewTensor(dtypes.Float32, ir.MakeShape(2, 3))
	require.NoError(t, err)
	require.Equal(t, 24, tensor.ByteSize())
	require.Equal(t, dtypes.Float32, tensor.DType())
	require.True(t, tensor.Shape().Equal(ir.MakeShape(2, 3)))

	_, err = NewTensor(dtypes.Float32, ir.MakeShape(ir.DimDynamic, 3))
	require.Error(t, err)
}

func TestNewTensorFromData(t *testing.T) {
	tensor, err := NewTensorFromData(dtypes.Uint8, ir.MakeShape(4), []byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, tensor.Data())

	_, err = NewTensorFromData(dtypes.Uint8, ir.MakeShape(4), []byte{1, 2})
	require.Error(t, err)
}

func TestTensorFloats(t *testing.T) {
	tensor, err := NewTensor(dtypes.Float16, ir.MakeShape(3))
	require.NoError(t, err)
	require.NoError(t, tensor.SetFloats([]float32{0.5, -1, 2}))

	values, err := tensor.Floats()
	require.NoError(t, err)
	require.Equal(t, []float32{0.5, -1, 2}, values)

	require.Error(t, tensor.SetFloats([]float32{1, 2}))
}

func TestTensorCopyFrom(t *testing.T) {
	src, err := NewTensor(dtypes.Float32, ir.MakeShape(2))
	require.NoError(t, err)
	require.NoError(t, src.SetFloats([]float32{3, 4}))

	dst, err := NewTensor(dtypes.Float32, ir.MakeShape(2))
	require.NoError(t, err)
	require.NoError(t, dst.CopyFrom(src))
	values, err := dst.Floats()
	require.NoError(t, err)
	require.Equal(t, []float32{3, 4}, values)

	other, err := NewTensor(dtypes.Float32, ir.MakeShape(3))
	require.NoError(t, err)
	require.Error(t, other.CopyFrom(src))

	half, err := NewTensor(dtypes.Float16, ir.MakeShape(2))
	require.NoError(t, err)
	require.Error(t, half.CopyFrom(src))
}
