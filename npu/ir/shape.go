package ir

import (
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
)

// DimDynamic marks a dimension whose extent is only known at run time.
const DimDynamic int64 = -1

// Shape is the possibly partial shape of a tensor: an ordered list of
// dimensions, any of which may be DimDynamic. A rank-0 shape is a scalar.
//
// Shapes are small values, copied freely; Dimensions is cloned on
// construction so callers can reuse their argument slice.
type Shape struct {
	Dimensions []int64
}

// MakeShape returns a Shape with the given dimensions. Dimensions must be
// positive or DimDynamic; it panics otherwise, since that is always a
// programming error.
func MakeShape(dimensions ...int64) Shape {
	for _, dim := range dimensions {
		if dim <= 0 && dim != DimDynamic {
			exceptions.Panicf("ir.MakeShape(%v): dimensions must be positive or DimDynamic", dimensions)
		}
	}
	return Shape{Dimensions: slices.Clone(dimensions)}
}

// Scalar returns the rank-0 shape.
func Scalar() Shape {
	return Shape{}
}

// Rank is the number of axes of the shape.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsStatic reports whether every dimension is known.
func (s Shape) IsStatic() bool {
	for _, dim := range s.Dimensions {
		if dim == DimDynamic {
			return false
		}
	}
	return true
}

// NumElements returns the total element count. ok is false when the shape
// has dynamic dimensions, in which case the count is meaningless.
func (s Shape) NumElements() (count int64, ok bool) {
	count = 1
	for _, dim := range s.Dimensions {
		if dim == DimDynamic {
			return 0, false
		}
		count *= dim
	}
	return count, true
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{Dimensions: slices.Clone(s.Dimensions)}
}

// Equal reports whether both shapes have identical dimensions, dynamic
// markers included.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s.Dimensions, other.Dimensions)
}

// String pretty-prints the shape, with "?" for dynamic dimensions:
// "[1 3 ? 224]". Scalars print as "[]".
func (s Shape) String() string {
	parts := make([]string, 0, len(s.Dimensions))
	for _, dim := range s.Dimensions {
		if dim == DimDynamic {
			parts = append(parts, "?")
		} else {
			parts = append(parts, strconv.FormatInt(dim, 10))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
