package runbuf

// State is the lifecycle state of a Run.
type State uint32

const (
	// Idle means no run is active. This is the initial state and the state after stop.
	Idle State = iota
	// Scanning means a start document was adopted and the run is collecting documents.
	Scanning
)

// IsIdle returns if the state is Idle.
func (s State) IsIdle() bool { return s == Idle }

// IsScanning returns if the state is Scanning.
func (s State) IsScanning() bool { return s == Scanning }

// String returns string representation of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	default:
		return "unknown"
	}
}
