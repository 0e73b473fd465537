package nexus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/go-nxrec/internal/util"
)

// DType is the element type of a dataset or attribute.
type DType string

const (
	Float64Type DType = "F8"
	Int64Type   DType = "I8"
	BoolType    DType = "BOOLEAN"
	StringType  DType = "A"
)

// Data is an immutable typed value: a scalar, or a row-major array with a shape.
//
// A scalar has an empty shape and exactly one element.
type Data struct {
	dtype  DType
	shape  []int
	floats []float64
	ints   []int64
	bools  []bool
	strs   []string
}

// NewData converts a Go value into Data.
//
// Accepted values are strings, booleans, integers and floats, typed slices of those, and
// (nested) []any lists whose leaves share one type. Integer and float leaves mixed in a
// list are promoted to F8. nil, maps and other types return ErrUnsupportedType.
func NewData(v any) (Data, error) {
	switch val := v.(type) {
	case Data:
		return val, nil
	case string:
		return Data{dtype: StringType, strs: []string{val}}, nil
	case []byte:
		return Data{dtype: StringType, strs: []string{string(val)}}, nil
	case bool:
		return Data{dtype: BoolType, bools: []bool{val}}, nil
	case float64:
		return Data{dtype: Float64Type, floats: []float64{val}}, nil
	case float32:
		return Data{dtype: Float64Type, floats: []float64{float64(val)}}, nil
	case []string:
		return Data{dtype: StringType, shape: []int{len(val)}, strs: util.CloneSlice(val, 0)}, nil
	case []bool:
		return Data{dtype: BoolType, shape: []int{len(val)}, bools: util.CloneSlice(val, 0)}, nil
	case []float64:
		return Data{dtype: Float64Type, shape: []int{len(val)}, floats: util.CloneSlice(val, 0)}, nil
	case []float32:
		return Data{dtype: Float64Type, shape: []int{len(val)}, floats: util.ToFloat64Slice(val)}, nil
	case []int64:
		return Data{dtype: Int64Type, shape: []int{len(val)}, ints: util.CloneSlice(val, 0)}, nil
	case []int:
		return Data{dtype: Int64Type, shape: []int{len(val)}, ints: util.ToInt64Slice(val)}, nil
	case []any:
		flat, shape, err := flatten(val)
		if err != nil {
			return Data{}, err
		}
		return fromFlat(flat, shape)
	}

	if i, ok := toInt64(v); ok {
		return Data{dtype: Int64Type, ints: []int64{i}}, nil
	}

	return Data{}, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

// MustData is like NewData but panics on error. It is intended for literal values.
func MustData(v any) Data {
	d, err := NewData(v)
	if err != nil {
		panic(err)
	}

	return d
}

// Empty returns an empty one-dimensional array of the given type.
func Empty(dtype DType) Data {
	return Data{dtype: dtype, shape: []int{0}}
}

func (d Data) DType() DType { return d.dtype }

// Shape returns a copy of the dimensions. It is empty for a scalar.
func (d Data) Shape() []int { return util.CloneSlice(d.shape, 0) }

// IsScalar reports whether d holds a single value without dimensions.
func (d Data) IsScalar() bool { return len(d.shape) == 0 }

// Len returns the total number of elements.
func (d Data) Len() int {
	switch d.dtype {
	case Float64Type:
		return len(d.floats)
	case Int64Type:
		return len(d.ints)
	case BoolType:
		return len(d.bools)
	case StringType:
		return len(d.strs)
	default:
		return 0
	}
}

func (d Data) Floats() []float64 { return util.CloneSlice(d.floats, 0) }
func (d Data) Ints() []int64     { return util.CloneSlice(d.ints, 0) }
func (d Data) Bools() []bool     { return util.CloneSlice(d.bools, 0) }
func (d Data) Strings() []string { return util.CloneSlice(d.strs, 0) }

// Value returns the scalar value, or the flat element slice of an array.
func (d Data) Value() any {
	switch d.dtype {
	case Float64Type:
		if d.IsScalar() {
			return d.floats[0]
		}
		return d.Floats()
	case Int64Type:
		if d.IsScalar() {
			return d.ints[0]
		}
		return d.Ints()
	case BoolType:
		if d.IsScalar() {
			return d.bools[0]
		}
		return d.Bools()
	case StringType:
		if d.IsScalar() {
			return d.strs[0]
		}
		return d.Strings()
	default:
		return nil
	}
}

// Text returns the scalar string value, or the SML rendering for any other data.
func (d Data) Text() string {
	if d.dtype == StringType && d.IsScalar() {
		return d.strs[0]
	}

	return d.ToSML()
}

// ToSML renders the data in SML style, for example <F8[3] 1 2 3> or <A "entry">.
// Arrays longer than maxValues are truncated with "..."; maxValues <= 0 renders everything.
func (d Data) ToSML() string {
	return d.sml(0)
}

func (d Data) sml(maxValues int) string {
	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(string(d.dtype))
	if !d.IsScalar() {
		sb.WriteByte('[')
		for i, n := range d.shape {
			if i > 0 {
				sb.WriteByte('x')
			}
			sb.WriteString(strconv.Itoa(n))
		}
		sb.WriteByte(']')
	}

	n := d.Len()
	limit := n
	if maxValues > 0 && n > maxValues {
		limit = maxValues
	}
	for i := 0; i < limit; i++ {
		sb.WriteByte(' ')
		switch d.dtype {
		case Float64Type:
			sb.WriteString(strconv.FormatFloat(d.floats[i], 'g', -1, 64))
		case Int64Type:
			sb.WriteString(strconv.FormatInt(d.ints[i], 10))
		case BoolType:
			if d.bools[i] {
				sb.WriteByte('T')
			} else {
				sb.WriteByte('F')
			}
		case StringType:
			sb.WriteString(strconv.Quote(d.strs[i]))
		}
	}
	if limit < n {
		sb.WriteString(" ...")
	}
	sb.WriteByte('>')

	return sb.String()
}

func flatten(list []any) ([]any, []int, error) {
	shape := []int{len(list)}
	if len(list) == 0 {
		return nil, shape, nil
	}

	if _, nested := asList(list[0]); !nested {
		for _, item := range list {
			if _, ok := asList(item); ok {
				return nil, nil, ErrRaggedArray
			}
		}
		return list, shape, nil
	}

	var flat []any
	var inner []int
	for i, item := range list {
		sub, ok := asList(item)
		if !ok {
			return nil, nil, ErrRaggedArray
		}
		subFlat, subShape, err := flatten(sub)
		if err != nil {
			return nil, nil, err
		}
		if i == 0 {
			inner = subShape
		} else if !util.ShapeEqual(inner, subShape) {
			return nil, nil, ErrRaggedArray
		}
		flat = append(flat, subFlat...)
	}

	return flat, append(shape, inner...), nil
}

func asList(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case []float64:
		out := make([]any, len(val))
		for i, x := range val {
			out[i] = x
		}
		return out, true
	case []int64:
		out := make([]any, len(val))
		for i, x := range val {
			out[i] = x
		}
		return out, true
	case []int:
		out := make([]any, len(val))
		for i, x := range val {
			out[i] = int64(x)
		}
		return out, true
	case []string:
		out := make([]any, len(val))
		for i, x := range val {
			out[i] = x
		}
		return out, true
	case []bool:
		out := make([]any, len(val))
		for i, x := range val {
			out[i] = x
		}
		return out, true
	default:
		return nil, false
	}
}

func fromFlat(flat []any, shape []int) (Data, error) {
	if len(flat) == 0 {
		return Data{dtype: Float64Type, shape: shape}, nil
	}

	var ints, floats, bools, strs int
	for _, item := range flat {
		switch item.(type) {
		case float64, float32:
			floats++
		case bool:
			bools++
		case string:
			strs++
		default:
			if _, ok := toInt64(item); !ok {
				return Data{}, fmt.Errorf("%w: list element %T", ErrUnsupportedType, item)
			}
			ints++
		}
	}

	n := len(flat)
	d := Data{shape: shape}
	switch {
	case ints == n:
		d.dtype = Int64Type
		d.ints = make([]int64, n)
		for i, item := range flat {
			d.ints[i], _ = toInt64(item)
		}
	case ints+floats == n:
		d.dtype = Float64Type
		d.floats = make([]float64, n)
		for i, item := range flat {
			d.floats[i] = toFloat64(item)
		}
	case bools == n:
		d.dtype = BoolType
		d.bools = make([]bool, n)
		for i, item := range flat {
			d.bools[i], _ = item.(bool)
		}
	case strs == n:
		d.dtype = StringType
		d.strs = make([]string, n)
		for i, item := range flat {
			d.strs[i], _ = item.(string)
		}
	default:
		return Data{}, ErrMixedTypes
	}

	return d, nil
}

func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), true
	default:
		return 0, false
	}
}

func toFloat64(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	default:
		i, _ := toInt64(v)
		return float64(i)
	}
}
