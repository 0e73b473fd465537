package runbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-nxrec/document"
)

func TestStreams_Descriptor(t *testing.T) {
	require := require.New(t)

	s := NewStreams()
	desc := s.AddDescriptor(&document.Descriptor{
		UID: "d1",
		DataKeys: map[string]document.DataKey{
			"det1": {Source: "PV:det1", Units: "counts", Precision: 2},
			"I0":   {},
		},
	})
	require.Equal(DefaultStreamName, desc.Stream)
	require.Equal([]string{"I0", "det1"}, desc.Keys())

	entry, ok := desc.Entry("det1")
	require.True(ok)
	require.Equal("counts", entry.Units)
	require.Equal(2, entry.Precision)
	require.Zero(entry.Len())

	bare, _ := desc.Entry("I0")
	require.Empty(bare.Source)
	require.Empty(bare.Shape)

	got, err := s.Stream("primary")
	require.NoError(err)
	require.Same(desc, got)

	_, err = s.Stream("baseline")
	require.ErrorIs(err, ErrNoStream)
}

func TestStreams_AppendEvent(t *testing.T) {
	require := require.New(t)

	s := NewStreams()
	s.AddDescriptor(descriptorDoc("d1", "primary", "det1", "sx"))

	dropped, err := s.AppendEvent(eventDoc("d1", 1, map[string]any{"det1": 1.0, "sx": 0.5, "late": 7.0, "alpha": 1.0}))
	require.NoError(err)
	require.Equal([]string{"alpha", "late"}, dropped)

	_, err = s.AppendEvent(eventDoc("nope", 2, map[string]any{"det1": 1.0}))
	require.ErrorIs(err, ErrUnknownDescriptor)

	desc, _ := s.Descriptor("d1")
	for _, e := range desc.Entries() {
		require.Equal(1, e.Len())
	}
}

func TestStreams_LengthInvariant(t *testing.T) {
	s := NewStreams()
	s.AddDescriptor(descriptorDoc("d1", "primary", "a", "b"))

	events := []map[string]any{
		{"a": 1.0, "b": 2.0},
		{"a": 1.5},
		{"b": 3.0, "c": 9.0},
		{},
	}
	desc, _ := s.Descriptor("d1")
	for i, data := range events {
		_, err := s.AppendEvent(eventDoc("d1", float64(i), data))
		require.NoError(t, err)
		for _, e := range desc.Entries() {
			assert.Equal(t, len(e.Data()), len(e.Time()), "entry %s after event %d", e.Key, i)
		}
	}
}

func TestStreams_Validate(t *testing.T) {
	s := NewStreams()
	s.AddDescriptor(descriptorDoc("d1", "primary", "det1"))
	s.AddDescriptor(descriptorDoc("b1", "baseline", "ring_current"))
	require.NoError(t, s.Validate())
	assert.Equal(t, []string{"baseline", "primary"}, s.Names())

	s.AddDescriptor(descriptorDoc("d2", "primary", "det1"))
	assert.Equal(t, []string{"d1", "d2"}, s.DescriptorIDs("primary"))
	require.ErrorIs(t, s.Validate(), ErrMultipleDescriptors)

	_, err := s.Stream("primary")
	require.ErrorIs(t, err, ErrMultipleDescriptors)
	assert.True(t, s.Has("baseline"))
	assert.False(t, s.Has("monitor"))
}

func TestEntry_Endpoints(t *testing.T) {
	e := NewEntry("ring_current", document.DataKey{})
	_, ok := e.First()
	assert.False(t, ok)

	e.Append(101.2, 1)
	e.Append(101.0, 2)
	e.Append(100.7, 3)

	first, _ := e.First()
	last, _ := e.Last()
	assert.Equal(t, 101.2, first)
	assert.Equal(t, 100.7, last)

	data := e.Data()
	data[0] = 0.0
	first, _ = e.First()
	assert.Equal(t, 101.2, first)
}
