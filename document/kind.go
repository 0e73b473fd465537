package document

// Kind identifies a lifecycle document type.
type Kind uint8

const (
	UnknownKind Kind = iota
	StartKind
	DescriptorKind
	EventKind
	ResourceKind
	DatumKind
	StopKind
)

// String returns the document name used on the wire.
func (k Kind) String() string {
	switch k {
	case StartKind:
		return "start"
	case DescriptorKind:
		return "descriptor"
	case EventKind:
		return "event"
	case ResourceKind:
		return "resource"
	case DatumKind:
		return "datum"
	case StopKind:
		return "stop"
	default:
		return "unknown"
	}
}

// ParseKind converts a wire document name into a Kind.
// It returns UnknownKind and false for any other name.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "start":
		return StartKind, true
	case "descriptor":
		return DescriptorKind, true
	case "event":
		return EventKind, true
	case "resource":
		return ResourceKind, true
	case "datum":
		return DatumKind, true
	case "stop":
		return StopKind, true
	default:
		return UnknownKind, false
	}
}

// Kinds lists every known document kind in lifecycle order.
func Kinds() []Kind {
	return []Kind{StartKind, DescriptorKind, EventKind, ResourceKind, DatumKind, StopKind}
}
