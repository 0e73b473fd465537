package exporter

import (
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/arloliu/go-nxrec/nexus"
)

// Sections builds the customizable subsections of the hierarchy. Slits, Monochromator
// and Source receive the instrument group; Sample and Contact receive the entry group.
//
// A section should only create groups for devices that are present in the run. Returned
// errors are reported by the export without stopping it.
type Sections interface {
	Slits(b *Builder, instrument *nexus.Group) error
	Monochromator(b *Builder, instrument *nexus.Group) error
	Source(b *Builder, instrument *nexus.Group) error
	Sample(b *Builder, entry *nexus.Group) error
	Contact(b *Builder, entry *nexus.Group) error
}

// SourceInfo describes the beam source. Name, Type and Probe are written as constants.
type SourceInfo struct {
	Name   string   `yaml:"name"`
	Type   string   `yaml:"type"`
	Probe  string   `yaml:"probe"`
	Fields FieldMap `yaml:"fields"`
}

// DeviceMap tells DefaultSections which canonical nodes belong to which device.
type DeviceMap struct {
	// Slits maps slit group names (NXslit) to their fields.
	Slits         map[string]FieldMap `yaml:"slits"`
	Monochromator FieldMap            `yaml:"monochromator"`
	Source        SourceInfo          `yaml:"source"`
	Sample        FieldMap            `yaml:"sample"`
	Contact       FieldMap            `yaml:"contact"`
}

// DefaultDeviceMap returns the device map of a generic synchrotron beamline.
func DefaultDeviceMap() DeviceMap {
	return DeviceMap{
		Slits: map[string]FieldMap{},
		Monochromator: FieldMap{
			"energy":     StreamRef(DefaultBaselineStream, "energy", ValueStartField),
			"wavelength": StreamRef(DefaultBaselineStream, "wavelength", ValueStartField),
		},
		Source: SourceInfo{
			Name:  "synchrotron",
			Type:  "Synchrotron X-ray Source",
			Probe: "x-ray",
			Fields: FieldMap{
				"current": StreamRef(DefaultBaselineStream, "ring_current", ValueStartField),
			},
		},
		Sample: FieldMap{
			"name":        MetadataRef("sample"),
			"description": MetadataRef("sample_description"),
			"thickness":   MetadataRef("sample_thickness"),
			"temperature": StreamRef(DefaultBaselineStream, "sample_temperature", ValueStartField),
		},
		Contact: FieldMap{
			"name":        MetadataRef("user_name"),
			"email":       MetadataRef("user_email"),
			"affiliation": MetadataRef("user_affiliation"),
			"proposal_id": MetadataRef("proposal_id"),
		},
	}
}

// DefaultSections builds every subsection as links selected by a DeviceMap.
// Embed it to replace individual subsections.
type DefaultSections struct {
	Devices DeviceMap
}

var _ Sections = (*DefaultSections)(nil)

// NewDefaultSections creates DefaultSections for devices.
func NewDefaultSections(devices DeviceMap) *DefaultSections {
	return &DefaultSections{Devices: devices}
}

func (s *DefaultSections) Slits(b *Builder, instrument *nexus.Group) error {
	for _, name := range sortedKeys(s.Devices.Slits) {
		b.LinkedGroup(instrument, name, "NXslit", s.Devices.Slits[name])
	}

	return nil
}

func (s *DefaultSections) Monochromator(b *Builder, instrument *nexus.Group) error {
	b.LinkedGroup(instrument, "monochromator", "NXmonochromator", s.Devices.Monochromator)
	return nil
}

// Source always writes the constant source description, and links the fields that resolve.
func (s *DefaultSections) Source(b *Builder, instrument *nexus.Group) error {
	info := s.Devices.Source
	if info.Name == "" && info.Type == "" && info.Probe == "" && len(b.Resolvable(info.Fields)) == 0 {
		return nil
	}

	g, ok := b.Group(instrument, "source", "NXsource")
	if !ok {
		return fmt.Errorf("%w: source group", ErrSection)
	}
	for _, kv := range [][2]string{{"name", info.Name}, {"type", info.Type}, {"probe", info.Probe}} {
		if kv[1] != "" {
			b.Dataset(g, kv[0], kv[1])
		}
	}
	for _, field := range b.Resolvable(info.Fields) {
		b.LinkRef(g, field, info.Fields[field])
	}

	return nil
}

func (s *DefaultSections) Sample(b *Builder, entry *nexus.Group) error {
	b.LinkedGroup(entry, "sample", "NXsample", s.Devices.Sample)
	return nil
}

func (s *DefaultSections) Contact(b *Builder, entry *nexus.Group) error {
	b.LinkedGroup(entry, "contact", "NXuser", s.Devices.Contact)
	return nil
}

// runSection calls fn and converts a panic into an ErrSection error.
func runSection(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v\n%s", ErrSection, name, r, debug.Stack())
		}
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSection, name, err)
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
