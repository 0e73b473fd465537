package util

// CloneSlice clones slice with cloneSize.
// This function will use src length as the clone size if cloneSize is 0.
func CloneSlice[T any](src []T, cloneSize int) []T {
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)

	return clone
}

// ToFloat64Slice converts a numeric slice to a new float64 slice.
//
// The function performs implicit type conversions, potentially resulting in precision loss for very large integer values.
func ToFloat64Slice[T float32 | float64 | int | int8 | int16 | int32 | int64 | uint | uint8 | uint16 | uint32 | uint64](values []T) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}

	return out
}

// ToInt64Slice converts an integer slice to a new int64 slice.
//
// Unsigned values above math.MaxInt64 wrap; callers are expected to check the range first.
func ToInt64Slice[T int | int8 | int16 | int32 | int64 | uint | uint8 | uint16 | uint32 | uint64](values []T) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}

	return out
}

// Product returns the product of dims, which is 1 for an empty shape (a scalar).
func Product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}

	return n
}

// ShapeEqual reports whether two shapes have the same dimensions.
func ShapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
