package runbuf

import "errors"

var (
	// ErrNotScanning indicates that a document was applied while no run is active.
	ErrNotScanning = errors.New("run buffer is not scanning")

	// ErrUnknownDescriptor indicates that an event references a descriptor that was never registered.
	ErrUnknownDescriptor = errors.New("unknown descriptor")

	// ErrMultipleDescriptors indicates that a stream has more than one descriptor.
	// The canonical stream/key addressing requires exactly one descriptor per stream.
	ErrMultipleDescriptors = errors.New("stream has more than one descriptor")

	// ErrNoStream indicates that a stream name has no registered descriptor.
	ErrNoStream = errors.New("stream not found")
)
