package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFromAny(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		kind     Kind
		expected any
	}{
		{name: "nil", input: nil, kind: StringKind, expected: ""},
		{name: "string", input: "glassy carbon", kind: StringKind, expected: "glassy carbon"},
		{name: "bool", input: true, kind: BoolKind, expected: true},
		{name: "int", input: int64(42), kind: IntKind, expected: int64(42)},
		{name: "float", input: 0.25, kind: FloatKind, expected: 0.25},
		{name: "int list", input: []any{int64(1), int64(2)}, kind: IntArrayKind, expected: []int64{1, 2}},
		{name: "number list", input: []any{int64(1), 2.5}, kind: FloatArrayKind, expected: []float64{1, 2.5}},
		{name: "string list", input: []any{"m1", "m2"}, kind: StringArrayKind, expected: []string{"m1", "m2"}},
		{name: "typed strings", input: []string{"det"}, kind: StringArrayKind, expected: []string{"det"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := FromAny(tt.input)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.expected, v.Native())
		})
	}
}

func TestFromAny_Blob(t *testing.T) {
	require := require.New(t)

	hints := map[string]any{"dimensions": []any{[]any{[]any{"sx"}, "primary"}}}
	v := FromAny(hints)
	require.Equal(BlobKind, v.Kind())

	var decoded map[string]any
	require.NoError(yaml.Unmarshal([]byte(v.Text()), &decoded))
	require.Equal(hints, decoded)

	mixed := FromAny([]any{"a", int64(1)})
	require.Equal(BlobKind, mixed.Kind())
	require.Equal("- a\n- 1\n", mixed.Text())

	empty := FromAny([]any{})
	require.Equal(BlobKind, empty.Kind())
}

func TestMap(t *testing.T) {
	m := FromFields(map[string]any{"sample": "water", "scan_title": "blank", "temperature": 25.0})
	assert.Equal(t, []string{"sample", "scan_title", "temperature"}, m.Keys())

	text, ok := m.Lookup("temperature")
	assert.True(t, ok)
	assert.Equal(t, "25", text)

	_, ok = m.Lookup("missing")
	assert.False(t, ok)
}
