package runbuf

import (
	"github.com/arloliu/go-nxrec/document"
	"github.com/arloliu/go-nxrec/internal/util"
)

// Entry is the buffered time series of one signal within one descriptor.
//
// data and time always have the same length; both only grow by Append.
type Entry struct {
	Key            string
	Source         string
	DType          string
	Shape          []int
	Units          string
	LowerCtrlLimit float64
	UpperCtrlLimit float64
	Precision      int
	ObjectName     string

	data []any
	time []float64
}

// NewEntry creates an empty Entry seeded with the declared metadata of key.
func NewEntry(key string, dk document.DataKey) *Entry {
	return &Entry{
		Key:            key,
		Source:         dk.Source,
		DType:          dk.DType,
		Shape:          util.CloneSlice(dk.Shape, 0),
		Units:          dk.Units,
		LowerCtrlLimit: dk.LowerCtrlLimit,
		UpperCtrlLimit: dk.UpperCtrlLimit,
		Precision:      dk.Precision,
		ObjectName:     dk.ObjectName,
	}
}

// Append records one sample and its timestamp.
func (e *Entry) Append(value any, timestamp float64) {
	e.data = append(e.data, value)
	e.time = append(e.time, timestamp)
}

// Len returns the number of recorded samples.
func (e *Entry) Len() int {
	return len(e.data)
}

// Data returns a copy of the recorded samples.
func (e *Entry) Data() []any {
	return util.CloneSlice(e.data, 0)
}

// Time returns a copy of the recorded timestamps.
func (e *Entry) Time() []float64 {
	return util.CloneSlice(e.time, 0)
}

// First returns the first sample, or false if nothing was recorded.
func (e *Entry) First() (any, bool) {
	if len(e.data) == 0 {
		return nil, false
	}

	return e.data[0], true
}

// Last returns the most recent sample, or false if nothing was recorded.
func (e *Entry) Last() (any, bool) {
	if len(e.data) == 0 {
		return nil, false
	}

	return e.data[len(e.data)-1], true
}
