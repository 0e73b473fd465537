package runbuf

import (
	"github.com/arloliu/go-nxrec/document"
	"github.com/arloliu/go-nxrec/metadata"
)

// Run is the top-level buffered state of one run.
type Run struct {
	state State

	UID         string
	ScanID      int64
	PlanName    string
	StartTime   float64
	StopTime    float64
	ExitStatus  string
	StopReason  string
	Metadata    metadata.Map
	Detectors   []string
	Positioners []string

	Streams   *Streams
	Resources map[string]*document.Resource
	Datums    map[string]*document.Datum
}

// New creates an idle, empty Run.
func New() *Run {
	r := &Run{}
	r.Reset()

	return r
}

// State returns the lifecycle state.
func (r *Run) State() State {
	return r.state
}

// IsScanning reports whether a run is active.
func (r *Run) IsScanning() bool {
	return r.state.IsScanning()
}

// Reset clears every buffer and returns to Idle. Calling it repeatedly yields the same empty state.
func (r *Run) Reset() {
	r.state = Idle
	r.UID = ""
	r.ScanID = 0
	r.PlanName = ""
	r.StartTime = 0
	r.StopTime = 0
	r.ExitStatus = ""
	r.StopReason = ""
	r.Metadata = metadata.Map{}
	r.Detectors = []string{}
	r.Positioners = []string{}
	r.Streams = NewStreams()
	r.Resources = map[string]*document.Resource{}
	r.Datums = map[string]*document.Datum{}
}

// Adopt resets the buffer and starts collecting the run opened by start.
func (r *Run) Adopt(start *document.Start) {
	r.Reset()

	r.UID = start.UID
	r.ScanID = start.ScanID
	r.PlanName = start.PlanName
	r.StartTime = start.Time
	r.Detectors = append(r.Detectors, start.Detectors...)
	r.Positioners = append(r.Positioners, start.Positioners...)
	r.Metadata = metadata.FromFields(start.Fields)

	r.state = Scanning
}

// AddDescriptor registers a descriptor of the active run.
func (r *Run) AddDescriptor(doc *document.Descriptor) (*Descriptor, error) {
	if !r.IsScanning() {
		return nil, ErrNotScanning
	}

	return r.Streams.AddDescriptor(doc), nil
}

// AddEvent appends an event of the active run and returns the keys it had to skip.
func (r *Run) AddEvent(doc *document.Event) ([]string, error) {
	if !r.IsScanning() {
		return nil, ErrNotScanning
	}

	return r.Streams.AppendEvent(doc)
}

// AddResource records a resource document for traceability.
func (r *Run) AddResource(doc *document.Resource) error {
	if !r.IsScanning() {
		return ErrNotScanning
	}
	r.Resources[doc.UID] = doc

	return nil
}

// AddDatum records a datum document for traceability.
func (r *Run) AddDatum(doc *document.Datum) error {
	if !r.IsScanning() {
		return ErrNotScanning
	}
	r.Datums[doc.DatumID] = doc

	return nil
}

// Finish applies the stop document. The run stays Scanning until Close so that it
// can still be exported.
func (r *Run) Finish(stop *document.Stop) error {
	if !r.IsScanning() {
		return ErrNotScanning
	}
	r.ExitStatus = stop.ExitStatus
	r.StopReason = stop.Reason
	r.StopTime = stop.Time

	return nil
}

// Close returns the run to Idle while keeping its buffers readable until the next Adopt.
func (r *Run) Close() {
	r.state = Idle
}

// Duration returns the run duration in seconds.
func (r *Run) Duration() float64 {
	return r.StopTime - r.StartTime
}
