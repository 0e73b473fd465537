package recorder

import (
	"time"

	"github.com/arloliu/go-nxrec/document"
)

// Observer receives the recorder's activity counters. Implementations must be safe for
// concurrent use when shared between recorders.
type Observer interface {
	// DocumentReceived is called for every document passed to Receive.
	DocumentReceived(kind document.Kind)
	// DocumentDropped is called for a document ignored because no run is active.
	DocumentDropped(kind document.Kind)
	// EventKeysDropped is called with the number of event keys missing from their descriptor.
	EventKeysDropped(n int)
	// RunSkipped is called when a start document is refused by the plan filter.
	RunSkipped(plan string)
	// RunExported is called after a file was written.
	RunExported(plan string, elapsed time.Duration)
	// ExportFailed is called when an export returned an error.
	ExportFailed(plan string)
}

// NopObserver discards everything.
type NopObserver struct{}

var _ Observer = NopObserver{}

func (NopObserver) DocumentReceived(document.Kind)    {}
func (NopObserver) DocumentDropped(document.Kind)     {}
func (NopObserver) EventKeysDropped(int)              {}
func (NopObserver) RunSkipped(string)                 {}
func (NopObserver) RunExported(string, time.Duration) {}
func (NopObserver) ExportFailed(string)               {}
