package document

// Document is implemented by every lifecycle document type.
type Document interface {
	Kind() Kind
}

var (
	_ Document = (*Start)(nil)
	_ Document = (*Descriptor)(nil)
	_ Document = (*Event)(nil)
	_ Document = (*Resource)(nil)
	_ Document = (*Datum)(nil)
	_ Document = (*Stop)(nil)
)

// Start opens a run.
//
// Fields holds every start field other than uid and scan_id, including plan_name,
// time, detectors and positioners, so it can be stored verbatim as run metadata.
type Start struct {
	UID         string
	ScanID      int64
	Time        float64
	PlanName    string
	Detectors   []string
	Positioners []string
	Fields      map[string]any
}

func (*Start) Kind() Kind { return StartKind }

// DataKey is the declared metadata of one signal in a descriptor.
type DataKey struct {
	Source         string
	DType          string
	Shape          []int
	Units          string
	LowerCtrlLimit float64
	UpperCtrlLimit float64
	Precision      int
	ObjectName     string
}

// Descriptor announces the signals of a stream.
type Descriptor struct {
	UID      string
	RunStart string
	Name     string
	Time     float64
	DataKeys map[string]DataKey
}

func (*Descriptor) Kind() Kind { return DescriptorKind }

// Event carries one reading of the signals declared by a descriptor.
type Event struct {
	UID        string
	Descriptor string
	SeqNum     int64
	Time       float64
	Data       map[string]any
	Timestamps map[string]float64
}

func (*Event) Kind() Kind { return EventKind }

// Timestamp returns the timestamp of key, falling back to the event time.
func (e *Event) Timestamp(key string) float64 {
	if ts, ok := e.Timestamps[key]; ok {
		return ts
	}

	return e.Time
}

// Resource references an external file holding bulk data.
type Resource struct {
	UID          string
	RunStart     string
	Spec         string
	Root         string
	ResourcePath string
	Params       map[string]any
}

func (*Resource) Kind() Kind { return ResourceKind }

// Datum addresses a slice of a Resource.
type Datum struct {
	DatumID  string
	Resource string
	Kwargs   map[string]any
}

func (*Datum) Kind() Kind { return DatumKind }

// Stop closes a run.
type Stop struct {
	UID        string
	RunStart   string
	Time       float64
	ExitStatus string
	Reason     string
	NumEvents  map[string]int64
}

func (*Stop) Kind() Kind { return StopKind }
