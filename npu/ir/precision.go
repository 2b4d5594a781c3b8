package ir

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// PrecisionString returns the serialized element type name for dt, e.g.
// "f32" for dtypes.Float32. Unsupported dtypes map to "undefined".
func PrecisionString(dt dtypes.DType) string {
	switch dt {
	case dtypes.Float32:
		return "f32"
	case dtypes.Float16:
		return "f16"
	case dtypes.BFloat16:
		return "bf16"
	case dtypes.Float64:
		return "f64"
	case dtypes.Int8:
		return "i8"
	case dtypes.Int16:
		return "i16"
	case dtypes.Int32:
		return "i32"
	case dtypes.Int64:
		return "i64"
	case dtypes.Uint8:
		return "u8"
	case dtypes.Uint16:
		return "u16"
	case dtypes.Uint32:
		return "u32"
	case dtypes.Uint64:
		return "u64"
	case dtypes.Bool:
		return "boolean"
	}
	return "undefined"
}

// ParsePrecision is the inverse of PrecisionString.
func ParsePrecision(name string) (dtypes.DType, error) {
	switch name {
	case "f32":
		return dtypes.Float32, nil
	case "f16":
		return dtypes.Float16, nil
	case "bf16":
		return dtypes.BFloat16, nil
	case "f64":
		return dtypes.Float64, nil
	case "i8":
		return dtypes.Int8, nil
	case "i16":
		return dtypes.Int16, nil
	case "i32":
		return dtypes.Int32, nil
	case "i64":
		return dtypes.Int64, nil
	case "u8":
		return dtypes.Uint8, nil
	case "u16":
		return dtypes.Uint16, nil
	case "u32":
		return dtypes.Uint32, nil
	case "u64":
		return dtypes.Uint64, nil
	case "boolean":
		return dtypes.Bool, nil
	}
	return dtypes.InvalidDType, errors.Errorf("unknown element type %q", name)
}
