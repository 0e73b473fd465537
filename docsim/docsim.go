// Package docsim generates synthetic document streams of complete runs, for tests and
// for exercising a recorder without a run engine.
package docsim

import (
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/go-nxrec/document"
)

// Signal is a simulated signal whose value at point i is Start + Step*i.
type Signal struct {
	Name   string
	Source string
	Units  string
	Start  float64
	Step   float64
}

func (s Signal) value(i int) float64 {
	return s.Start + s.Step*float64(i)
}

func (s Signal) dataKey() document.DataKey {
	return document.DataKey{
		Source:     s.Source,
		DType:      "number",
		Shape:      []int{},
		Units:      s.Units,
		Precision:  4,
		ObjectName: s.Name,
	}
}

// Run describes a synthetic run.
type Run struct {
	PlanName string
	ScanID   int64
	// Time is the start time; zero means now.
	Time time.Time
	// Points is the number of primary events.
	Points int
	// Interval is the time between primary events.
	Interval time.Duration

	Positioners []Signal
	Detectors   []Signal
	// Baseline signals are read once before and once after the primary events.
	Baseline []Signal

	// Metadata holds extra start document fields.
	Metadata   map[string]any
	ExitStatus string

	// NewUID generates document uids; uuid.NewString is used when nil.
	NewUID func() string
}

// Default returns a small step scan of one motor and one detector with a baseline.
func Default() Run {
	return Run{
		PlanName: "scan",
		ScanID:   1,
		Points:   5,
		Interval: 100 * time.Millisecond,
		Positioners: []Signal{
			{Name: "sx", Source: "PV:motor:sx.RBV", Units: "mm", Start: -1, Step: 0.5},
		},
		Detectors: []Signal{
			{Name: "det1", Source: "PV:det1:counts", Units: "counts", Start: 100, Step: 10},
		},
		Baseline: []Signal{
			{Name: "energy", Source: "PV:mono:energy", Units: "keV", Start: 12, Step: 0},
			{Name: "ring_current", Source: "PV:ring:current", Units: "mA", Start: 102, Step: -0.5},
		},
		Metadata:   map[string]any{"sample": "water", "user_name": "beamline staff"},
		ExitStatus: "success",
	}
}

// Documents returns the ordered documents of the run: start, descriptors, the first
// baseline event, the primary events, the last baseline event and stop.
func (r Run) Documents() []document.Document {
	newUID := r.NewUID
	if newUID == nil {
		newUID = uuid.NewString
	}
	begin := r.Time
	if begin.IsZero() {
		begin = time.Now()
	}
	t0 := epoch(begin)
	dt := r.Interval.Seconds()

	start := &document.Start{
		UID:         newUID(),
		ScanID:      r.ScanID,
		Time:        t0,
		PlanName:    r.PlanName,
		Detectors:   names(r.Detectors),
		Positioners: names(r.Positioners),
		Fields: map[string]any{
			"plan_name":  r.PlanName,
			"num_points": int64(r.Points),
		},
	}
	for k, v := range r.Metadata {
		start.Fields[k] = v
	}
	docs := []document.Document{start}

	primary := &document.Descriptor{UID: newUID(), RunStart: start.UID, Name: "primary", Time: t0, DataKeys: map[string]document.DataKey{}}
	for _, s := range append(append([]Signal{}, r.Positioners...), r.Detectors...) {
		primary.DataKeys[s.Name] = s.dataKey()
	}
	docs = append(docs, primary)

	var baseline *document.Descriptor
	if len(r.Baseline) > 0 {
		baseline = &document.Descriptor{UID: newUID(), RunStart: start.UID, Name: "baseline", Time: t0, DataKeys: map[string]document.DataKey{}}
		for _, s := range r.Baseline {
			baseline.DataKeys[s.Name] = s.dataKey()
		}
		docs = append(docs, baseline, event(newUID(), baseline.UID, 1, t0, r.Baseline, 0))
	}

	for i := 0; i < r.Points; i++ {
		ts := t0 + dt*float64(i+1)
		signals := append(append([]Signal{}, r.Positioners...), r.Detectors...)
		docs = append(docs, event(newUID(), primary.UID, int64(i+1), ts, signals, i))
	}

	end := t0 + dt*float64(r.Points+1)
	numEvents := map[string]int64{"primary": int64(r.Points)}
	if baseline != nil {
		docs = append(docs, event(newUID(), baseline.UID, 2, end, r.Baseline, 1))
		numEvents["baseline"] = 2
	}

	return append(docs, &document.Stop{
		UID:        newUID(),
		RunStart:   start.UID,
		Time:       end,
		ExitStatus: r.ExitStatus,
		NumEvents:  numEvents,
	})
}

func event(uid, descriptor string, seq int64, ts float64, signals []Signal, i int) *document.Event {
	ev := &document.Event{
		UID:        uid,
		Descriptor: descriptor,
		SeqNum:     seq,
		Time:       ts,
		Data:       make(map[string]any, len(signals)),
		Timestamps: make(map[string]float64, len(signals)),
	}
	for _, s := range signals {
		ev.Data[s.Name] = s.value(i)
		ev.Timestamps[s.Name] = ts
	}

	return ev
}

func names(signals []Signal) []string {
	out := make([]string, 0, len(signals))
	for _, s := range signals {
		out = append(out, s.Name)
	}

	return out
}

func epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
