package runbuf

import (
	"fmt"
	"sort"

	"github.com/arloliu/go-nxrec/document"
)

// DefaultStreamName is used for descriptors that do not name their stream.
const DefaultStreamName = "primary"

// Descriptor is a registered descriptor and the entries of its declared keys.
type Descriptor struct {
	UID     string
	Stream  string
	entries map[string]*Entry
	keys    []string
}

// Entry returns the entry of key.
func (d *Descriptor) Entry(key string) (*Entry, bool) {
	e, ok := d.entries[key]
	return e, ok
}

// Keys returns the declared keys in lexical order.
func (d *Descriptor) Keys() []string {
	return append([]string{}, d.keys...)
}

// Entries returns the entries in key order.
func (d *Descriptor) Entries() []*Entry {
	out := make([]*Entry, 0, len(d.keys))
	for _, k := range d.keys {
		out = append(out, d.entries[k])
	}

	return out
}

// Streams accumulates descriptors and their entries, grouped by stream name.
type Streams struct {
	descriptors map[string]*Descriptor
	byStream    map[string][]string
}

// NewStreams creates an empty accumulator.
func NewStreams() *Streams {
	return &Streams{
		descriptors: map[string]*Descriptor{},
		byStream:    map[string][]string{},
	}
}

// AddDescriptor registers a descriptor under its stream and creates an empty entry per declared key.
//
// A second descriptor for the same stream is accepted here; Validate reports it.
func (s *Streams) AddDescriptor(doc *document.Descriptor) *Descriptor {
	stream := doc.Name
	if stream == "" {
		stream = DefaultStreamName
	}

	desc := &Descriptor{
		UID:     doc.UID,
		Stream:  stream,
		entries: make(map[string]*Entry, len(doc.DataKeys)),
		keys:    doc.SortedKeys(),
	}
	for _, key := range desc.keys {
		desc.entries[key] = NewEntry(key, doc.DataKeys[key])
	}

	s.descriptors[doc.UID] = desc
	s.byStream[stream] = append(s.byStream[stream], doc.UID)

	return desc
}

// AppendEvent appends every value of the event to the matching entry.
//
// Keys that the descriptor did not declare are skipped and returned in lexical order.
// ErrUnknownDescriptor is returned when the event references an unregistered descriptor.
func (s *Streams) AppendEvent(ev *document.Event) ([]string, error) {
	desc, ok := s.descriptors[ev.Descriptor]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDescriptor, ev.Descriptor)
	}

	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var dropped []string
	for _, key := range keys {
		entry, ok := desc.entries[key]
		if !ok {
			dropped = append(dropped, key)
			continue
		}
		entry.Append(ev.Data[key], ev.Timestamp(key))
	}

	return dropped, nil
}

// Names returns the stream names in lexical order.
func (s *Streams) Names() []string {
	names := make([]string, 0, len(s.byStream))
	for name := range s.byStream {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// DescriptorIDs returns the descriptor uids registered for stream, in arrival order.
func (s *Streams) DescriptorIDs(stream string) []string {
	return append([]string{}, s.byStream[stream]...)
}

// Descriptor returns the descriptor with the given uid.
func (s *Streams) Descriptor(uid string) (*Descriptor, bool) {
	d, ok := s.descriptors[uid]
	return d, ok
}

// Stream returns the single descriptor of stream.
func (s *Streams) Stream(stream string) (*Descriptor, error) {
	ids := s.byStream[stream]
	switch len(ids) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrNoStream, stream)
	case 1:
		return s.descriptors[ids[0]], nil
	default:
		return nil, fmt.Errorf("%w: stream %q has %d descriptors", ErrMultipleDescriptors, stream, len(ids))
	}
}

// Has reports whether stream has at least one descriptor.
func (s *Streams) Has(stream string) bool {
	return len(s.byStream[stream]) > 0
}

// Validate checks the single-descriptor-per-stream invariant for every stream.
func (s *Streams) Validate() error {
	for _, name := range s.Names() {
		if _, err := s.Stream(name); err != nil {
			return err
		}
	}

	return nil
}

// Len returns the number of registered descriptors.
func (s *Streams) Len() int {
	return len(s.descriptors)
}
