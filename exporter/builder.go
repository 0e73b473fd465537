package exporter

import (
	"fmt"
	"sort"

	"github.com/arloliu/go-nxrec/logger"
	"github.com/arloliu/go-nxrec/nexus"
	"github.com/arloliu/go-nxrec/runbuf"
)

// Canonical hierarchy paths.
const (
	EntryPath      = "/entry"
	InstrumentPath = EntryPath + "/instrument"
	MetadataPath   = InstrumentPath + "/bluesky_metadata"
	StreamsPath    = InstrumentPath + "/bluesky_streams"
)

// Per-key dataset names under a stream key group.
const (
	ValueField      = "value"
	TimeField       = "time"
	EpochField      = "EPOCH"
	ValueStartField = "value_start"
	ValueEndField   = "value_end"
)

// SignalTypeAttr holds the detector/positioner role of a primary stream key.
const SignalTypeAttr = "signal_type"

// StreamPath returns the canonical path of a per-key dataset. An empty field returns the key group.
func StreamPath(stream, key, field string) string {
	p := StreamsPath + "/" + stream + "/" + key
	if field != "" {
		p += "/" + field
	}

	return p
}

// MetadataKeyPath returns the canonical path of a metadata dataset.
func MetadataKeyPath(key string) string {
	return MetadataPath + "/" + key
}

// Ref addresses a canonical node that a section links to. Either Metadata is set,
// or Stream and Key are set with an optional Field (default "value").
type Ref struct {
	Stream   string `yaml:"stream,omitempty"`
	Key      string `yaml:"key,omitempty"`
	Field    string `yaml:"field,omitempty"`
	Metadata string `yaml:"metadata,omitempty"`
}

// StreamRef refers to a per-key dataset.
func StreamRef(stream, key, field string) Ref {
	return Ref{Stream: stream, Key: key, Field: field}
}

// MetadataRef refers to a metadata dataset.
func MetadataRef(key string) Ref {
	return Ref{Metadata: key}
}

// Path returns the canonical path of the reference.
func (r Ref) Path() string {
	if r.Metadata != "" {
		return MetadataKeyPath(r.Metadata)
	}

	field := r.Field
	if field == "" {
		field = ValueField
	}

	return StreamPath(r.Stream, r.Key, field)
}

// FieldMap maps NeXus field names to the nodes they link to.
type FieldMap map[string]Ref

// Names returns the field names in lexical order.
func (m FieldMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Builder is the hierarchy of one run under construction. Sections receive it to
// resolve canonical nodes and create links.
type Builder struct {
	cfg         *Config
	run         *runbuf.Run
	file        *nexus.File
	entry       *nexus.Group
	instrument  *nexus.Group
	logger      logger.Logger
	diagnostics []error
}

func newBuilder(cfg *Config, run *runbuf.Run) *Builder {
	return &Builder{
		cfg:    cfg,
		run:    run,
		file:   nexus.NewFile(),
		logger: cfg.logger.With("uid", run.UID, "scan_id", run.ScanID),
	}
}

func (b *Builder) Run() *runbuf.Run         { return b.run }
func (b *Builder) File() *nexus.File        { return b.file }
func (b *Builder) Entry() *nexus.Group      { return b.entry }
func (b *Builder) Instrument() *nexus.Group { return b.instrument }
func (b *Builder) Logger() logger.Logger    { return b.logger }
func (b *Builder) PrimaryStream() string    { return b.cfg.primaryStream }
func (b *Builder) BaselineStream() string   { return b.cfg.baselineStream }

// Diagnostics returns the non-fatal problems met so far.
func (b *Builder) Diagnostics() []error {
	return append([]error{}, b.diagnostics...)
}

func (b *Builder) diagnose(err error) {
	b.diagnostics = append(b.diagnostics, err)
}

// Exists reports whether path resolves to a node.
func (b *Builder) Exists(path string) bool {
	return b.file.Exists(path)
}

// Group creates a child group, recording a diagnostic on failure.
func (b *Builder) Group(parent *nexus.Group, name, nxClass string) (*nexus.Group, bool) {
	g, err := parent.CreateGroup(name, nxClass)
	if err != nil {
		b.logger.Warn("cannot create group", "parent", parent.Path(), "name", name, "error", err)
		b.diagnose(err)

		return nil, false
	}

	return g, true
}

// Dataset converts v and stores it under parent. When v cannot be stored natively the
// dataset holds the error text instead and carries conversion_error="true".
// attrs are set in the given key/value order.
func (b *Builder) Dataset(parent *nexus.Group, name string, v any, attrs ...any) *nexus.Dataset {
	data, convErr := nexus.NewData(v)
	if convErr != nil {
		path := parent.Path() + "/" + name
		b.logger.Error("dataset conversion failed", "path", path, "error", convErr)
		b.diagnose(fmt.Errorf("%w: %s: %w", ErrDatasetConversion, path, convErr))
		data = nexus.MustData(convErr.Error())
	}

	return b.DatasetData(parent, name, data, convErr, attrs...)
}

// DatasetData stores already converted data. A non-nil convErr marks the dataset as a
// conversion failure.
func (b *Builder) DatasetData(parent *nexus.Group, name string, data nexus.Data, convErr error, attrs ...any) *nexus.Dataset {
	ds, err := parent.CreateDataset(name, data)
	if err != nil {
		b.logger.Warn("cannot create dataset", "parent", parent.Path(), "name", name, "error", err)
		b.diagnose(err)

		return nil
	}

	for i := 0; i+1 < len(attrs); i += 2 {
		attrName, ok := attrs[i].(string)
		if !ok {
			continue
		}
		b.SetAttr(ds, attrName, attrs[i+1])
	}
	if convErr != nil {
		b.SetAttr(ds, "conversion_error", "true")
	}

	return ds
}

// SetAttr sets an attribute, recording a diagnostic on failure.
func (b *Builder) SetAttr(n nexus.Node, name string, v any) {
	if err := n.Attrs().Set(name, v); err != nil {
		b.logger.Warn("cannot set attribute", "path", n.Path(), "attr", name, "error", err)
		b.diagnose(err)
	}
}

// Link creates a link under parent to target. The link is created only if target
// resolves; otherwise false is returned and the miss is logged at debug level.
func (b *Builder) Link(parent *nexus.Group, name, target string) bool {
	if !b.file.Exists(target) {
		b.logger.Debug("link target not found", "link", parent.Path()+"/"+name, "target", target)
		return false
	}

	if _, err := parent.CreateLink(name, target); err != nil {
		b.logger.Warn("cannot create link", "parent", parent.Path(), "name", name, "error", err)
		b.diagnose(err)

		return false
	}

	return true
}

// LinkStream links name to a per-key dataset.
func (b *Builder) LinkStream(parent *nexus.Group, name, stream, key, field string) bool {
	return b.Link(parent, name, StreamRef(stream, key, field).Path())
}

// LinkMetadata links name to a metadata dataset.
func (b *Builder) LinkMetadata(parent *nexus.Group, name, key string) bool {
	return b.Link(parent, name, MetadataKeyPath(key))
}

// LinkRef links name to ref.
func (b *Builder) LinkRef(parent *nexus.Group, name string, ref Ref) bool {
	return b.Link(parent, name, ref.Path())
}

// Resolvable returns the names of fields whose reference resolves.
func (b *Builder) Resolvable(fields FieldMap) []string {
	var names []string
	for _, name := range fields.Names() {
		if b.file.Exists(fields[name].Path()) {
			names = append(names, name)
		}
	}

	return names
}

// LinkedGroup creates a group holding one link per resolvable field. The group is not
// created when no field resolves.
func (b *Builder) LinkedGroup(parent *nexus.Group, name, nxClass string, fields FieldMap) (*nexus.Group, bool) {
	names := b.Resolvable(fields)
	if len(names) == 0 {
		return nil, false
	}

	g, ok := b.Group(parent, name, nxClass)
	if !ok {
		return nil, false
	}
	for _, field := range names {
		b.LinkRef(g, field, fields[field])
	}

	return g, true
}
