package ir

import (
	"encoding/binary"
	"math"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// EncodeFloats packs values into the little endian on-disk representation
// of the given float element type. It supports the element types NPU
// weights are stored in: f32, f16 and bf16.
func EncodeFloats(dt dtypes.DType, values []float32) ([]byte, error) {
	switch dt {
	case dtypes.Float32:
		data := make([]byte, 4*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
		}
		return data, nil
	case dtypes.Float16:
		data := make([]byte, 2*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint16(data[2*i:], float16.Fromfloat32(v).Bits())
		}
		return data, nil
	case dtypes.BFloat16:
		data := make([]byte, 2*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint16(data[2*i:], uint16(math.Float32bits(v)>>16))
		}
		return data, nil
	}
	return nil, errors.Errorf("cannot encode floats as %s", dt)
}

// DecodeFloats is the inverse of EncodeFloats.
func DecodeFloats(dt dtypes.DType, data []byte) ([]float32, error) {
	size := dt.Size()
	if size > 0 && len(data)%size != 0 {
		return nil, errors.Errorf("%d bytes is not a multiple of the %s element size %d",
			len(data), dt, size)
	}
	switch dt {
	case dtypes.Float32:
		values := make([]float32, len(data)/4)
		for i := range values {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
		}
		return values, nil
	case dtypes.Float16:
		values := make([]float32, len(data)/2)
		for i := range values {
			values[i] = float16.Float16(binary.LittleEndian.Uint16(data[2*i:])).Float32()
		}
		return values, nil
	case dtypes.BFloat16:
		values := make([]float32, len(data)/2)
		for i := range values {
			values[i] = math.Float32frombits(uint32(binary.LittleEndian.Uint16(data[2*i:])) << 16)
		}
		return values, nil
	}
	return nil, errors.Errorf("cannot decode floats from %s", dt)
}
