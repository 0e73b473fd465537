// Package classify decides whether a recorded signal is a positioner or a detector.
//
// The decision is made from the signal's declared source string alone: a signal is a
// positioner iff its source contains one of the configured identifier substrings.
package classify

import (
	"strings"

	"github.com/arloliu/go-nxrec/runbuf"
)

// Role is the classification of a signal.
type Role uint8

const (
	Detector Role = iota
	Positioner
)

// String returns the value written to the signal_type attribute.
func (r Role) String() string {
	if r == Positioner {
		return "positioner"
	}

	return "detector"
}

// ParseRole converts a signal_type attribute value back into a Role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "positioner":
		return Positioner, true
	case "detector":
		return Detector, true
	default:
		return Detector, false
	}
}

// DefaultPositionerSources are the source substrings that identify motor records.
var DefaultPositionerSources = []string{"motor", "Motor"}

// Classifier maps an entry source to a Role.
type Classifier struct {
	patterns []string
}

// New creates a Classifier. With no patterns, DefaultPositionerSources is used.
// Empty patterns are ignored since they would match every source.
func New(patterns ...string) *Classifier {
	if len(patterns) == 0 {
		patterns = DefaultPositionerSources
	}

	c := &Classifier{patterns: make([]string, 0, len(patterns))}
	for _, p := range patterns {
		if p != "" {
			c.patterns = append(c.patterns, p)
		}
	}

	return c
}

// Patterns returns the configured identifier substrings.
func (c *Classifier) Patterns() []string {
	return append([]string{}, c.patterns...)
}

// Classify returns Positioner iff source contains one of the patterns.
func (c *Classifier) Classify(source string) Role {
	for _, p := range c.patterns {
		if strings.Contains(source, p) {
			return Positioner
		}
	}

	return Detector
}

// Entry classifies a buffered entry by its source.
func (c *Classifier) Entry(e *runbuf.Entry) Role {
	return c.Classify(e.Source)
}

// Descriptor classifies every entry of a descriptor, keyed by signal name.
func (c *Classifier) Descriptor(d *runbuf.Descriptor) map[string]Role {
	roles := make(map[string]Role, len(d.Keys()))
	for _, e := range d.Entries() {
		roles[e.Key] = c.Entry(e)
	}

	return roles
}
