package exporter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-nxrec/classify"
	"github.com/arloliu/go-nxrec/document"
	"github.com/arloliu/go-nxrec/logger"
	"github.com/arloliu/go-nxrec/nexus"
	"github.com/arloliu/go-nxrec/runbuf"
)

type testKey struct {
	name   string
	source string
}

func newRun(t *testing.T, fields map[string]any) *runbuf.Run {
	t.Helper()

	run := runbuf.New()
	run.Adopt(&document.Start{
		UID:         "abcdef123456",
		ScanID:      12,
		Time:        100,
		PlanName:    "saxs_scan",
		Detectors:   []string{"det1"},
		Positioners: []string{"sx"},
		Fields:      fields,
	})

	return run
}

func addStream(t *testing.T, run *runbuf.Run, uid, stream string, keys ...testKey) {
	t.Helper()

	dks := map[string]document.DataKey{}
	for _, k := range keys {
		dks[k.name] = document.DataKey{Source: k.source, DType: "number", Units: "mm", Precision: 3}
	}
	_, err := run.AddDescriptor(&document.Descriptor{UID: uid, Name: stream, DataKeys: dks})
	require.NoError(t, err)
}

func addEvent(t *testing.T, run *runbuf.Run, desc string, ts float64, data map[string]any) {
	t.Helper()

	stamps := map[string]float64{}
	for k := range data {
		stamps[k] = ts
	}
	dropped, err := run.AddEvent(&document.Event{Descriptor: desc, Time: ts, Data: data, Timestamps: stamps})
	require.NoError(t, err)
	require.Empty(t, dropped)
}

func finish(t *testing.T, run *runbuf.Run, status string) {
	t.Helper()
	require.NoError(t, run.Finish(&document.Stop{Time: 110, ExitStatus: status, Reason: ""}))
}

func newExporter(t *testing.T, opts ...Option) *Exporter {
	t.Helper()

	base := []Option{
		WithOutputDir(t.TempDir()),
		WithLocation(time.UTC),
		WithLogger(logger.NewPermissiveMockLogger()),
		WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }),
	}
	exp, err := New(append(base, opts...)...)
	require.NoError(t, err)

	return exp
}

func scenarioRun(t *testing.T, source string) *runbuf.Run {
	t.Helper()

	run := newRun(t, map[string]any{"plan_name": "saxs_scan"})
	addStream(t, run, "d1", "primary", testKey{"det1", source})
	for i, v := range []float64{1.0, 2.0, 3.0} {
		addEvent(t, run, "d1", 100.0+0.1*float64(i), map[string]any{"det1": v})
	}
	finish(t, run, "success")

	return run
}

func dataset(t *testing.T, f *nexus.File, path string) nexus.Data {
	t.Helper()

	node, err := f.Resolve(path)
	require.NoError(t, err)
	ds, ok := node.(*nexus.Dataset)
	require.True(t, ok, "%s is a %s", path, node.Kind())

	return ds.Data()
}

func attr(t *testing.T, f *nexus.File, path, name string) string {
	t.Helper()

	node, err := f.Lookup(path)
	require.NoError(t, err)
	s, ok := node.Attrs().String(name)
	require.True(t, ok, "%s@%s missing", path, name)

	return s
}

func TestExport_Scenario(t *testing.T) {
	tests := []struct {
		name   string
		source string
		role   string
		group  string
	}{
		{name: "detector", source: "det:readback", role: "detector", group: "detectors"},
		{name: "positioner", source: "motor:readback", role: "positioner", group: "positioners"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			exp := newExporter(t)
			res, err := exp.Export(scenarioRun(t, tt.source))
			require.NoError(err)
			require.Empty(res.Diagnostics)
			require.Equal("19700101-000140-S0012-abcdef1.nxs", filepath.Base(res.Path))

			f, err := nexus.Open(res.Path)
			require.NoError(err)

			value := dataset(t, f, StreamPath("primary", "det1", ValueField))
			require.Equal([]float64{1, 2, 3}, value.Floats())
			require.InDeltaSlice([]float64{0, 0.1, 0.2}, dataset(t, f, StreamPath("primary", "det1", TimeField)).Floats(), 1e-9)
			require.InDeltaSlice([]float64{100, 100.1, 100.2}, dataset(t, f, StreamPath("primary", "det1", EpochField)).Floats(), 1e-9)

			require.Equal(tt.role, attr(t, f, StreamPath("primary", "det1", ""), SignalTypeAttr))
			require.Equal(tt.role, attr(t, f, StreamPath("primary", "det1", ValueField), SignalTypeAttr))
			require.Equal("mm", attr(t, f, StreamPath("primary", "det1", ValueField), "units"))
			require.Equal(tt.source, attr(t, f, StreamPath("primary", "det1", ValueField), "source"))

			node, err := f.Lookup(InstrumentPath + "/" + tt.group + "/det1")
			require.NoError(err)
			require.Equal(nexus.LinkKind, node.Kind())
			require.Equal(StreamPath("primary", "det1", ""), node.(*nexus.Link).Target())

			// the plot view links to the same values
			require.Equal([]float64{1, 2, 3}, dataset(t, f, "/entry/data/det1").Floats())
			require.Equal("det1", attr(t, f, "/entry/data", "signal"))
			require.Empty(f.DanglingLinks())
		})
	}
}

func TestExport_EntryFields(t *testing.T) {
	require := require.New(t)

	exp := newExporter(t)
	f, diags, err := exp.Build(scenarioRun(t, "det:readback"), "x.nxs")
	require.NoError(err)
	require.Empty(diags)

	require.Equal("x.nxs", attr(t, f, "/", "file_name"))
	require.Equal("entry", attr(t, f, "/", "default"))
	require.Equal("2026-01-02T03:04:05.000000Z", attr(t, f, "/", "file_time"))
	require.Equal("msgpack", attr(t, f, "/", "container_format"))
	require.Equal("NXentry", attr(t, f, EntryPath, nexus.ClassAttr))
	require.Equal("data", attr(t, f, EntryPath, "default"))

	require.Equal([]string{"abcdef123456"}, dataset(t, f, "/entry/entry_identifier").Strings())
	require.Equal([]int64{12}, dataset(t, f, "/entry/scan_id").Ints())
	require.Equal([]float64{10}, dataset(t, f, "/entry/duration").Floats())
	require.Equal([]string{"1970-01-01T00:01:40.000000Z"}, dataset(t, f, "/entry/start_time").Strings())
	require.Equal([]string{"1970-01-01T00:01:50.000000Z"}, dataset(t, f, "/entry/end_time").Strings())
	require.Equal([]string{"bluesky"}, dataset(t, f, "/entry/program_name").Strings())
	require.Equal([]string{"success"}, dataset(t, f, "/entry/exit_status").Strings())
	require.Equal([]string{"S0012-saxs_scan-abcdef1"}, dataset(t, f, "/entry/title").Strings())
}

func TestExport_MultipleDescriptors(t *testing.T) {
	dir := t.TempDir()
	exp := newExporter(t, WithOutputDir(dir))

	run := newRun(t, nil)
	addStream(t, run, "d1", "primary", testKey{"det1", "det"})
	addStream(t, run, "d2", "primary", testKey{"det1", "det"})
	finish(t, run, "success")

	res, err := exp.Export(run)
	require.ErrorIs(t, err, runbuf.ErrMultipleDescriptors)
	require.Nil(t, res)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestExport_CreateFailure(t *testing.T) {
	exp := newExporter(t, WithOutputDir(filepath.Join(t.TempDir(), "missing")))

	_, err := exp.Export(scenarioRun(t, "det"))
	require.ErrorIs(t, err, ErrCreateFile)
}

func TestExport_BaselineEndpoints(t *testing.T) {
	require := require.New(t)

	run := newRun(t, nil)
	addStream(t, run, "d1", "primary", testKey{"det1", "det"})
	addStream(t, run, "b1", "baseline", testKey{"energy", "mono:energy"}, testKey{"ring_current", "ring"})
	addEvent(t, run, "b1", 99.5, map[string]any{"energy": 12.0, "ring_current": 101.5})
	addEvent(t, run, "d1", 100, map[string]any{"det1": 5.0})
	addEvent(t, run, "b1", 109.5, map[string]any{"energy": 12.5, "ring_current": 99.0})
	finish(t, run, "success")

	f, diags, err := newExporter(t).Build(run, "b.nxs")
	require.NoError(err)
	require.Empty(diags)

	require.Equal([]float64{12, 12.5}, dataset(t, f, StreamPath("baseline", "energy", ValueField)).Floats())
	require.Equal([]float64{12}, dataset(t, f, StreamPath("baseline", "energy", ValueStartField)).Floats())
	require.Equal([]float64{12.5}, dataset(t, f, StreamPath("baseline", "energy", ValueEndField)).Floats())
	require.InDeltaSlice([]float64{0, 10}, dataset(t, f, StreamPath("baseline", "energy", TimeField)).Floats(), 1e-9)

	// primary streams carry no endpoints and no baseline signal_type
	require.False(f.Exists(StreamPath("primary", "det1", ValueStartField)))
	node, err := f.Lookup(StreamPath("baseline", "energy", ""))
	require.NoError(err)
	_, ok := node.Attrs().Get(SignalTypeAttr)
	require.False(ok)

	// default sections link the monochromator and source to baseline starts
	require.Equal([]float64{12}, dataset(t, f, InstrumentPath+"/monochromator/energy").Floats())
	require.False(f.Exists(InstrumentPath + "/monochromator/wavelength"))
	require.Equal([]float64{101.5}, dataset(t, f, InstrumentPath+"/source/current").Floats())
	require.Equal([]string{"x-ray"}, dataset(t, f, InstrumentPath+"/source/probe").Strings())
}

func TestExport_Metadata(t *testing.T) {
	require := require.New(t)

	run := newRun(t, map[string]any{
		"plan_name":   "saxs_scan",
		"sample":      "water",
		"user_name":   "A. User",
		"temperature": int64(25),
		"hints":       map[string]any{"dimensions": []any{"time"}},
	})
	finish(t, run, "abort")

	f, diags, err := newExporter(t).Build(run, "m.nxs")
	require.NoError(err)
	require.Empty(diags)

	require.Equal([]string{"water"}, dataset(t, f, MetadataKeyPath("sample")).Strings())
	require.Equal([]int64{25}, dataset(t, f, MetadataKeyPath("temperature")).Ints())
	require.Equal("yaml", attr(t, f, MetadataKeyPath("hints"), "encoding"))
	require.Contains(dataset(t, f, MetadataKeyPath("hints")).Text(), "dimensions")

	require.Equal([]string{"water"}, dataset(t, f, "/entry/sample/name").Strings())
	require.Equal("NXsample", attr(t, f, "/entry/sample", nexus.ClassAttr))
	require.Equal([]string{"A. User"}, dataset(t, f, "/entry/contact/name").Strings())
	require.False(f.Exists("/entry/contact/email"))

	// without a primary stream there is no plot view
	require.False(f.Exists("/entry/data"))
	require.False(f.Exists(InstrumentPath + "/detectors"))
	require.Equal([]string{"abort"}, dataset(t, f, "/entry/exit_status").Strings())
}

func TestExport_ConversionFailure(t *testing.T) {
	require := require.New(t)

	run := newRun(t, nil)
	addStream(t, run, "d1", "primary", testKey{"bad", "det"}, testKey{"good", "det"})
	addEvent(t, run, "d1", 100, map[string]any{"bad": "text", "good": 1.0})
	addEvent(t, run, "d1", 101, map[string]any{"bad": 2.0, "good": 2.0})
	finish(t, run, "success")

	res, err := newExporter(t).Export(run)
	require.NoError(err)
	require.Len(res.Diagnostics, 1)
	require.ErrorIs(res.Diagnostics[0], ErrDatasetConversion)
	require.ErrorIs(res.Diagnostics[0], nexus.ErrMixedTypes)

	f, err := nexus.Open(res.Path)
	require.NoError(err)

	bad := dataset(t, f, StreamPath("primary", "bad", ValueField))
	require.Equal(nexus.StringType, bad.DType())
	require.Contains(bad.Text(), nexus.ErrMixedTypes.Error())
	require.Equal("true", attr(t, f, StreamPath("primary", "bad", ValueField), "conversion_error"))
	require.Equal([]float64{1, 2}, dataset(t, f, StreamPath("primary", "good", ValueField)).Floats())
}

func TestExport_EmptyEntry(t *testing.T) {
	run := newRun(t, nil)
	_, err := run.AddDescriptor(&document.Descriptor{UID: "d1", Name: "primary", DataKeys: map[string]document.DataKey{
		"count": {Source: "det", DType: "integer"},
		"label": {Source: "det", DType: "string"},
	}})
	require.NoError(t, err)
	finish(t, run, "success")

	f, _, err := newExporter(t).Build(run, "e.nxs")
	require.NoError(t, err)

	count := dataset(t, f, StreamPath("primary", "count", ValueField))
	assert.Equal(t, nexus.Int64Type, count.DType())
	assert.Equal(t, 0, count.Len())
	assert.Equal(t, nexus.StringType, dataset(t, f, StreamPath("primary", "label", ValueField)).DType())
}

type panickySections struct {
	*DefaultSections
}

func (s panickySections) Slits(*Builder, *nexus.Group) error {
	panic("no slits today")
}

func (s panickySections) Contact(*Builder, *nexus.Group) error {
	return errors.New("contact lookup failed")
}

func TestExport_SectionErrors(t *testing.T) {
	require := require.New(t)

	exp := newExporter(t, WithSections(panickySections{NewDefaultSections(DefaultDeviceMap())}))
	res, err := exp.Export(scenarioRun(t, "det"))
	require.ErrorIs(err, ErrSection)
	require.Contains(err.Error(), "no slits today")
	require.Contains(err.Error(), "contact lookup failed")
	require.NotNil(res)

	// the rest of the hierarchy is still written
	f, err := nexus.Open(res.Path)
	require.NoError(err)
	require.Equal([]float64{1, 2, 3}, dataset(t, f, "/entry/data/det1").Floats())
}

func TestExport_TreeFormat(t *testing.T) {
	exp := newExporter(t, WithFormat(nexus.TreeFormat))
	res, err := exp.Export(scenarioRun(t, "det"))
	require.NoError(t, err)
	require.Equal(t, ".txt", filepath.Ext(res.Path))

	out, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(out), "bluesky_streams:NXnote")
	assert.Contains(t, string(out), "det1 --> "+StreamPath("primary", "det1", ValueField))
}

func TestPickSignal(t *testing.T) {
	keys := []string{"det0", "det1_stats", "sx", "sy"}
	roles := map[string]classify.Role{
		"det0":       classify.Detector,
		"det1_stats": classify.Detector,
		"sx":         classify.Positioner,
		"sy":         classify.Positioner,
	}

	tests := []struct {
		name      string
		preferred []string
		want      classify.Role
		expected  string
	}{
		{name: "device prefix", preferred: []string{"det1"}, want: classify.Detector, expected: "det1_stats"},
		{name: "first of role", preferred: nil, want: classify.Detector, expected: "det0"},
		{name: "unknown device", preferred: []string{"det9"}, want: classify.Detector, expected: "det0"},
		{name: "preferred order", preferred: []string{"sy", "sx"}, want: classify.Positioner, expected: "sy"},
		{name: "role mismatch", preferred: []string{"sx"}, want: classify.Detector, expected: "det0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, pickSignal(keys, roles, tt.preferred, tt.want))
		})
	}

	assert.Empty(t, pickSignal([]string{"det0"}, map[string]classify.Role{"det0": classify.Detector}, nil, classify.Positioner))
}

func TestDefaultFileNamer(t *testing.T) {
	run := runbuf.New()
	run.UID = "0123456789"
	run.ScanID = 7
	run.StartTime = 1700000000.5

	namer := DefaultFileNamer(time.UTC)
	assert.Equal(t, "20231114-221320-S0007-0123456.nxs", namer(run, "nxs"))

	run.UID = "abc"
	run.ScanID = 12345
	assert.Equal(t, "20231114-221320-S12345-abc.txt", namer(run, "txt"))
}

func TestConfig_Options(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultPrimaryStream, cfg.PrimaryStream())
	assert.Equal(t, DefaultBaselineStream, cfg.BaselineStream())
	assert.Equal(t, nexus.MsgpackFormat, cfg.Encoder().Format())

	tests := []struct {
		name string
		opt  Option
	}{
		{name: "same streams", opt: WithStreams("primary", "primary")},
		{name: "empty stream", opt: WithStreams("", "baseline")},
		{name: "bad format", opt: WithFormat("hdf4")},
		{name: "nil sections", opt: WithSections(nil)},
		{name: "nil namer", opt: WithFileNamer(nil)},
		{name: "nil location", opt: WithLocation(nil)},
		{name: "empty dir", opt: WithOutputDir("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			assert.Error(t, err)
		})
	}
}
