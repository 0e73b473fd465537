package exporter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/arloliu/go-nxrec/classify"
	"github.com/arloliu/go-nxrec/metadata"
	"github.com/arloliu/go-nxrec/nexus"
	"github.com/arloliu/go-nxrec/runbuf"
)

const (
	// Producer is written into the producer root attribute.
	Producer = "github.com/arloliu/go-nxrec"
	// NeXusVersion is the NeXus definitions release the hierarchy follows.
	NeXusVersion = "v2022.07"
	// ProgramName is the acquisition program recorded under /entry.
	ProgramName = "bluesky"
)

// Exporter writes a finished run into one output container.
type Exporter struct {
	cfg *Config
}

// Result describes a written container.
type Result struct {
	Path string
	// Diagnostics lists the non-fatal problems, such as datasets that hold a conversion error.
	Diagnostics []error
	Duration    time.Duration
}

// New creates an Exporter.
func New(opts ...Option) (*Exporter, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	return &Exporter{cfg: cfg}, nil
}

// Config returns the exporter configuration.
func (e *Exporter) Config() *Config {
	return e.cfg
}

// FileName returns the file name run would be written to.
func (e *Exporter) FileName(run *runbuf.Run) string {
	return e.cfg.namer(run, e.cfg.encoder.Extension())
}

// Export builds the hierarchy of run and writes it into a new file in the output directory.
//
// Streams holding more than one descriptor fail the export before any file is created.
// A file that cannot be created fails the export with ErrCreateFile. Errors of the
// customizable sections are returned after the partial hierarchy has been written.
func (e *Exporter) Export(run *runbuf.Run) (res *Result, err error) {
	began := time.Now()

	if err := run.Streams.Validate(); err != nil {
		return nil, err
	}

	name := e.FileName(run)
	path := filepath.Join(e.cfg.outputDir, name)

	w, err := nexus.Create(path, e.cfg.encoder)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateFile, err)
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	f, diagnostics, buildErr := e.Build(run, name)
	res = &Result{Path: path, Diagnostics: diagnostics}

	if err := w.Write(f); err != nil {
		return res, fmt.Errorf("encode %s: %w", path, err)
	}
	res.Duration = time.Since(began)

	e.cfg.logger.Info("run exported",
		"uid", run.UID,
		"scan_id", run.ScanID,
		"path", path,
		"diagnostics", len(diagnostics),
		"duration", res.Duration,
	)

	return res, buildErr
}

// Build creates the hierarchy of run in memory. fileName is recorded as the file_name root
// attribute. The returned file is usable even when err is a section error; it is nil only
// when the descriptor layout of run is invalid.
func (e *Exporter) Build(run *runbuf.Run, fileName string) (*nexus.File, []error, error) {
	if err := run.Streams.Validate(); err != nil {
		return nil, nil, err
	}

	b := newBuilder(e.cfg, run)
	err := e.build(b, fileName)

	return b.file, b.Diagnostics(), err
}

func (e *Exporter) build(b *Builder, fileName string) error {
	root := b.file.Root()
	e.writeRootAttrs(b, root, fileName)

	entry, ok := b.Group(root, "entry", "NXentry")
	if !ok {
		return fmt.Errorf("%w: entry group", ErrSection)
	}
	b.entry = entry
	e.writeEntryFields(b)

	instrument, ok := b.Group(entry, "instrument", "NXinstrument")
	if !ok {
		return fmt.Errorf("%w: instrument group", ErrSection)
	}
	b.instrument = instrument

	e.writeMetadata(b)
	e.writeStreams(b)

	var errs []error
	sections := e.cfg.sections
	errs = append(errs,
		runSection("slits", func() error { return sections.Slits(b, instrument) }),
		runSection("monochromator", func() error { return sections.Monochromator(b, instrument) }),
		runSection("source", func() error { return sections.Source(b, instrument) }),
	)

	keys, roles := e.primaryRoles(b)
	if len(keys) == 0 {
		b.logger.Warn("no primary stream; skipping data, detectors and positioners", "stream", e.cfg.primaryStream)
	} else {
		e.writeRoleGroup(b, "detectors", keys, roles, classify.Detector)
		e.writeRoleGroup(b, "positioners", keys, roles, classify.Positioner)
		e.writeData(b, keys, roles)
	}

	errs = append(errs,
		runSection("sample", func() error { return sections.Sample(b, entry) }),
		runSection("contact", func() error { return sections.Contact(b, entry) }),
	)

	err := errors.Join(errs...)
	if err != nil {
		b.logger.Error("section build failed", "error", err)
	}

	return err
}

func (e *Exporter) writeRootAttrs(b *Builder, root *nexus.Group, fileName string) {
	b.SetAttr(root, "file_name", fileName)
	b.SetAttr(root, "file_time", e.cfg.now().In(e.cfg.location).Format(isoLayout))
	b.SetAttr(root, "creator", e.cfg.creator)
	b.SetAttr(root, "producer", Producer)
	b.SetAttr(root, "NeXus_version", NeXusVersion)
	b.SetAttr(root, "container_format", string(e.cfg.encoder.Format()))
	b.SetAttr(root, "default", "entry")
}

func (e *Exporter) writeEntryFields(b *Builder) {
	run, entry, loc := b.run, b.entry, e.cfg.location

	b.Dataset(entry, "entry_identifier", run.UID)
	b.Dataset(entry, "plan_name", run.PlanName)
	b.Dataset(entry, "scan_id", run.ScanID)
	b.Dataset(entry, "start_time", isoTime(run.StartTime, loc))
	b.Dataset(entry, "end_time", isoTime(run.StopTime, loc))
	b.Dataset(entry, "duration", run.Duration(), "units", "s")
	b.Dataset(entry, "program_name", ProgramName)
	b.Dataset(entry, "exit_status", run.ExitStatus)
	b.Dataset(entry, "stop_reason", run.StopReason)
	b.Dataset(entry, "title", Title(run))
}

// Title returns the entry title S{scan_id:04d}-{plan_name}-{uid[:7]}.
func Title(run *runbuf.Run) string {
	uid := run.UID
	if len(uid) > 7 {
		uid = uid[:7]
	}

	return fmt.Sprintf("S%04d-%s-%s", run.ScanID, run.PlanName, uid)
}

func (e *Exporter) writeMetadata(b *Builder) {
	g, ok := b.Group(b.instrument, "bluesky_metadata", "NXnote")
	if !ok {
		return
	}

	for _, key := range b.run.Metadata.Keys() {
		v := b.run.Metadata[key]
		if v.Kind() == metadata.BlobKind {
			b.Dataset(g, key, v.Native(), "encoding", metadata.BlobEncoding)
			continue
		}
		b.Dataset(g, key, v.Native())
	}
}

func (e *Exporter) writeStreams(b *Builder) {
	streams, ok := b.Group(b.instrument, "bluesky_streams", "NXnote")
	if !ok {
		return
	}

	for _, name := range b.run.Streams.Names() {
		desc, err := b.run.Streams.Stream(name)
		if err != nil {
			b.diagnose(err)
			continue
		}

		g, ok := b.Group(streams, name, "NXnote")
		if !ok {
			continue
		}
		b.SetAttr(g, "descriptor", desc.UID)

		t0 := streamOrigin(desc)
		for _, entry := range desc.Entries() {
			e.writeEntry(b, g, name, entry, t0)
		}
	}
}

// streamOrigin returns the earliest timestamp of the stream, or 0 if it holds no samples.
func streamOrigin(desc *runbuf.Descriptor) float64 {
	var (
		t0    float64
		found bool
	)
	for _, entry := range desc.Entries() {
		times := entry.Time()
		if len(times) == 0 {
			continue
		}
		if !found || times[0] < t0 {
			t0, found = times[0], true
		}
	}

	return t0
}

func (e *Exporter) writeEntry(b *Builder, stream *nexus.Group, name string, entry *runbuf.Entry, t0 float64) {
	g, ok := b.Group(stream, entry.Key, "NXdata")
	if !ok {
		return
	}
	b.SetAttr(g, "signal", ValueField)
	b.SetAttr(g, "axes", TimeField)

	var role string
	if name == e.cfg.primaryStream {
		role = e.cfg.classifier.Entry(entry).String()
		b.SetAttr(g, SignalTypeAttr, role)
	}

	valueAttrs := append(entryAttrs(entry, entry.Units), "target", StreamPath(name, entry.Key, ValueField))
	if role != "" {
		valueAttrs = append(valueAttrs, SignalTypeAttr, role)
	}
	if entry.Len() == 0 {
		b.DatasetData(g, ValueField, nexus.Empty(emptyDType(entry.DType)), nil, valueAttrs...)
	} else {
		b.Dataset(g, ValueField, entry.Data(), valueAttrs...)
	}

	epoch := entry.Time()
	rel := make([]float64, len(epoch))
	for i, ts := range epoch {
		rel[i] = ts - t0
	}
	b.Dataset(g, TimeField, rel, append(entryAttrs(entry, "s"), "target", StreamPath(name, entry.Key, TimeField))...)
	b.Dataset(g, EpochField, epoch, append(entryAttrs(entry, "s"), "target", StreamPath(name, entry.Key, EpochField))...)

	if name != e.cfg.baselineStream {
		return
	}
	if first, ok := entry.First(); ok {
		b.Dataset(g, ValueStartField, first, entryAttrs(entry, entry.Units)...)
	}
	if last, ok := entry.Last(); ok {
		b.Dataset(g, ValueEndField, last, entryAttrs(entry, entry.Units)...)
	}
}

// entryAttrs returns the descriptive attributes of entry as key/value pairs.
func entryAttrs(entry *runbuf.Entry, units string) []any {
	attrs := []any{
		"source", entry.Source,
		"precision", int64(entry.Precision),
		"lower_ctrl_limit", entry.LowerCtrlLimit,
		"upper_ctrl_limit", entry.UpperCtrlLimit,
	}
	if units != "" {
		attrs = append(attrs, "units", units)
	}
	if entry.ObjectName != "" {
		attrs = append(attrs, "object_name", entry.ObjectName)
	}
	if entry.DType != "" {
		attrs = append(attrs, "dtype", entry.DType)
	}

	return attrs
}

// emptyDType maps a declared document dtype to the dataset type of an empty value.
func emptyDType(dtype string) nexus.DType {
	switch dtype {
	case "integer":
		return nexus.Int64Type
	case "boolean":
		return nexus.BoolType
	case "string":
		return nexus.StringType
	default:
		return nexus.Float64Type
	}
}

// primaryRoles reads the signal_type attribute of every primary stream key group.
func (e *Exporter) primaryRoles(b *Builder) ([]string, map[string]classify.Role) {
	node, err := b.file.Lookup(StreamsPath + "/" + e.cfg.primaryStream)
	if err != nil {
		return nil, nil
	}
	stream, ok := node.(*nexus.Group)
	if !ok {
		return nil, nil
	}

	var keys []string
	roles := map[string]classify.Role{}
	for _, child := range stream.Children() {
		g, ok := child.(*nexus.Group)
		if !ok {
			continue
		}
		text, _ := g.Attrs().String(SignalTypeAttr)
		role, _ := classify.ParseRole(text)
		keys = append(keys, g.Name())
		roles[g.Name()] = role
	}

	return keys, roles
}

func (e *Exporter) writeRoleGroup(b *Builder, name string, keys []string, roles map[string]classify.Role, want classify.Role) {
	var members []string
	for _, key := range keys {
		if roles[key] == want {
			members = append(members, key)
		}
	}
	if len(members) == 0 {
		return
	}

	g, ok := b.Group(b.instrument, name, "NXnote")
	if !ok {
		return
	}
	for _, key := range members {
		b.Link(g, key, StreamPath(e.cfg.primaryStream, key, ""))
	}
}

func (e *Exporter) writeData(b *Builder, keys []string, roles map[string]classify.Role) {
	g, ok := b.Group(b.entry, "data", "NXdata")
	if !ok {
		return
	}

	for _, key := range keys {
		b.LinkStream(g, key, e.cfg.primaryStream, key, ValueField)
	}
	b.LinkStream(g, EpochField, e.cfg.primaryStream, keys[0], EpochField)

	signal := pickSignal(keys, roles, b.run.Detectors, classify.Detector)
	if signal == "" {
		signal = keys[0]
	}
	axes := pickSignal(keys, roles, b.run.Positioners, classify.Positioner)
	if axes == "" {
		axes = EpochField
	}

	b.SetAttr(g, "signal", signal)
	b.SetAttr(g, "axes", axes)
	b.SetAttr(b.entry, "default", "data")
}

// pickSignal returns the first key with role want, preferring keys named after one of the
// preferred device names, in the order those names are given.
func pickSignal(keys []string, roles map[string]classify.Role, preferred []string, want classify.Role) string {
	for _, device := range preferred {
		for _, key := range keys {
			if roles[key] == want && (key == device || strings.HasPrefix(key, device+"_")) {
				return key
			}
		}
	}
	for _, key := range keys {
		if roles[key] == want {
			return key
		}
	}

	return ""
}
