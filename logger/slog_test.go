package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasErr   bool
	}{
		{input: "debug", expected: DebugLevel},
		{input: "INFO", expected: InfoLevel},
		{input: "", expected: InfoLevel},
		{input: "warning", expected: WarnLevel},
		{input: "error", expected: ErrorLevel},
		{input: "fatal", expected: FatalLevel},
		{input: "verbose", expected: InfoLevel, hasErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.hasErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestSlogLogger_JSON(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	l := NewSlogWriter(&buf, InfoLevel, JSONFormat, false)

	l.Debug("hidden")
	require.Zero(buf.Len())

	l.With("scan_id", 7).Warn("event key not in descriptor", "key", "det2")

	var rec map[string]any
	require.NoError(json.Unmarshal(buf.Bytes(), &rec))
	require.Equal("event key not in descriptor", rec["msg"])
	require.Equal("WARN", rec["level"])
	require.EqualValues(7, rec["scan_id"])
	require.Equal("det2", rec["key"])
	require.Contains(rec, "ts")
}

func TestSlogLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogWriter(&buf, ErrorLevel, JSONFormat, false)
	assert.Equal(t, ErrorLevel, l.Level())

	child := l.With("component", "recorder")
	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, child.Level())

	child.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestSlogLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogWriter(&buf, InfoLevel, ConsoleFormat, false)
	l.Info("file written", "path", "/tmp/a.nxs")
	assert.Contains(t, buf.String(), "file written")
	assert.Contains(t, buf.String(), "/tmp/a.nxs")
}
