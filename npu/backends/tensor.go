package backends

import (
	"github.com/XinWangIntel/openvino/npu/ir"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Tensor is a host side buffer with an element type and a static shape.
// Device backends copy tensors to and from device memory around inference.
type Tensor struct {
	dtype dtypes.DType
	shape ir.Shape
	data  []byte
}

// NewTensor allocates a zeroed tensor. The shape must be static.
func NewTensor(dtype dtypes.DType, shape ir.Shape) (*Tensor, error) {
	count, ok := shape.NumElements()
	if !ok {
		return nil, errors.Errorf("cannot allocate a tensor with dynamic shape %s", shape)
	}
	size := dtype.Size()
	if size <= 0 {
		return nil, errors.Errorf("cannot allocate a tensor of element type %s", dtype)
	}
	return &Tensor{
		dtype: dtype,
		shape: shape.Clone(),
		data:  make([]byte, count*int64(size)),
	}, nil
}

// NewTensorFromData wraps data as a tensor. The length of data must match
// the shape and element type exactly.
func NewTensorFromData(dtype dtypes.DType, shape ir.Shape, data []byte) (*Tensor, error) {
	count, ok := shape.NumElements()
	if !ok {
		return nil, errors.Errorf("cannot build a tensor with dynamic shape %s", shape)
	}
	if want := count * int64(dtype.Size()); int64(len(data)) != want {
		return nil, errors.Errorf("tensor %s of %s needs %d bytes, got %d",
			shape, dtype, want, len(data))
	}
	return &Tensor{dtype: dtype, shape: shape.Clone(), data: data}, nil
}

// DType returns the tensor element type.
func (t *Tensor) DType() dtypes.DType { return t.dtype }

// Shape returns the tensor shape. The caller must not modify it.
func (t *Tensor) Shape() ir.Shape { return t.shape }

// Data returns the tensor's backing bytes, shared with the tensor.
func (t *Tensor) Data() []byte { return t.data }

// ByteSize returns the size of the tensor's backing bytes.
func (t *Tensor) ByteSize() int { return len(t.data) }

// CopyFrom copies src's contents into t. Element type and shape must
// match.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if t.dtype != src.dtype || !t.shape.Equal(src.shape) {
		return errors.Errorf("cannot copy tensor %s of %s into tensor %s of %s",
			src.shape, src.dtype, t.shape, t.dtype)
	}
	copy(t.data, src.data)
	return nil
}

// Floats decodes the tensor contents as float32 values. Only float element
// types are supported.
func (t *Tensor) Floats() ([]float32, error) {
	return ir.DecodeFloats(t.dtype, t.data)
}

// SetFloats encodes values into the tensor. The value count must match the
// tensor's element count.
func (t *Tensor) SetFloats(values []float32) error {
	count, _ := t.shape.NumElements()
	if int64(len(values)) != count {
		return errors.Errorf("tensor %s holds %d elements, got %d values",
			t.shape, count, len(values))
	}
	data, err := ir.EncodeFloats(t.dtype, values)
	if err != nil {
		return err
	}
	copy(t.data, data)
	return nil
}
