// Package metadata holds run metadata as a closed set of storable value variants.
//
// Start documents carry arbitrary key/value pairs. The hierarchical container can only
// hold scalars and homogeneous arrays, so each value is classified once, when it is
// inserted, into one of the Kind variants. Compound values (maps, heterogeneous lists)
// become a Blob holding their YAML encoding.
package metadata

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	StringKind Kind = iota
	IntKind
	FloatKind
	BoolKind
	IntArrayKind
	FloatArrayKind
	StringArrayKind
	BlobKind
)

func (k Kind) String() string {
	switch k {
	case StringKind:
		return "string"
	case IntKind:
		return "int"
	case FloatKind:
		return "float"
	case BoolKind:
		return "bool"
	case IntArrayKind:
		return "int_array"
	case FloatArrayKind:
		return "float_array"
	case StringArrayKind:
		return "string_array"
	case BlobKind:
		return "blob"
	default:
		return "unknown"
	}
}

// BlobEncoding is the structured-text encoding used for Blob values.
const BlobEncoding = "yaml"

// Value is an immutable metadata value.
type Value struct {
	kind   Kind
	str    string
	i      int64
	f      float64
	b      bool
	ints   []int64
	floats []float64
	strs   []string
}

func String(s string) Value { return Value{kind: StringKind, str: s} }
func Int(i int64) Value     { return Value{kind: IntKind, i: i} }
func Float(f float64) Value { return Value{kind: FloatKind, f: f} }
func Bool(b bool) Value     { return Value{kind: BoolKind, b: b} }

// Blob encodes v as YAML text. Values yaml cannot encode fall back to fmt formatting.
func Blob(v any) Value {
	out, err := yaml.Marshal(v)
	if err != nil {
		return Value{kind: BlobKind, str: fmt.Sprintf("%v", v)}
	}

	return Value{kind: BlobKind, str: string(out)}
}

// FromAny classifies a decoded document value.
//
// nil becomes an empty String. Lists whose elements are all integers, all numbers or all
// strings become typed arrays; any other list, and every map, becomes a Blob.
func FromAny(v any) Value {
	switch val := v.(type) {
	case nil:
		return String("")
	case string:
		return String(val)
	case bool:
		return Bool(val)
	case int:
		return Int(int64(val))
	case int32:
		return Int(int64(val))
	case int64:
		return Int(val)
	case float32:
		return Float(float64(val))
	case float64:
		return Float(val)
	case []string:
		return Value{kind: StringArrayKind, strs: append([]string{}, val...)}
	case []int64:
		return Value{kind: IntArrayKind, ints: append([]int64{}, val...)}
	case []float64:
		return Value{kind: FloatArrayKind, floats: append([]float64{}, val...)}
	case []any:
		if arr, ok := fromList(val); ok {
			return arr
		}
		return Blob(val)
	default:
		return Blob(val)
	}
}

func fromList(list []any) (Value, bool) {
	if len(list) == 0 {
		return Value{}, false
	}

	var ints []int64
	var floats []float64
	var strs []string
	allInt, allNum, allStr := true, true, true

	for _, item := range list {
		switch val := item.(type) {
		case int64:
			ints = append(ints, val)
			floats = append(floats, float64(val))
			allStr = false
		case float64:
			floats = append(floats, val)
			allInt, allStr = false, false
		case string:
			strs = append(strs, val)
			allInt, allNum = false, false
		default:
			return Value{}, false
		}
	}

	switch {
	case allInt:
		return Value{kind: IntArrayKind, ints: ints}, true
	case allNum:
		return Value{kind: FloatArrayKind, floats: floats}, true
	case allStr:
		return Value{kind: StringArrayKind, strs: strs}, true
	default:
		return Value{}, false
	}
}

func (v Value) Kind() Kind { return v.kind }

// Native returns the value as a Go scalar or slice suitable for a dataset:
// string, int64, float64, bool, []int64, []float64 or []string. Blob returns its text.
func (v Value) Native() any {
	switch v.kind {
	case IntKind:
		return v.i
	case FloatKind:
		return v.f
	case BoolKind:
		return v.b
	case IntArrayKind:
		return append([]int64{}, v.ints...)
	case FloatArrayKind:
		return append([]float64{}, v.floats...)
	case StringArrayKind:
		return append([]string{}, v.strs...)
	case StringKind, BlobKind:
		return v.str
	default:
		return v.str
	}
}

// Text returns a human readable rendering of the value.
func (v Value) Text() string {
	switch v.kind {
	case StringKind, BlobKind:
		return v.str
	default:
		return fmt.Sprint(v.Native())
	}
}

// Map is the metadata of one run.
type Map map[string]Value

// FromFields classifies every field of a start document.
func FromFields(fields map[string]any) Map {
	m := make(Map, len(fields))
	for k, v := range fields {
		m[k] = FromAny(v)
	}

	return m
}

// Keys returns the metadata keys in lexical order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Lookup returns the value of key as text, and whether it was present.
func (m Map) Lookup(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}

	return v.Text(), true
}
