package recorder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-nxrec/document"
	"github.com/arloliu/go-nxrec/exporter"
	"github.com/arloliu/go-nxrec/logger"
	"github.com/arloliu/go-nxrec/nexus"
	"github.com/arloliu/go-nxrec/runbuf"
)

type countingObserver struct {
	mu       sync.Mutex
	received map[document.Kind]int
	dropped  map[document.Kind]int
	keys     int
	skipped  []string
	exported []string
	failed   []string
}

func newCountingObserver() *countingObserver {
	return &countingObserver{received: map[document.Kind]int{}, dropped: map[document.Kind]int{}}
}

func (o *countingObserver) DocumentReceived(k document.Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.received[k]++
}

func (o *countingObserver) DocumentDropped(k document.Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped[k]++
}

func (o *countingObserver) EventKeysDropped(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.keys += n
}

func (o *countingObserver) RunSkipped(plan string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped = append(o.skipped, plan)
}

func (o *countingObserver) RunExported(plan string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.exported = append(o.exported, plan)
}

func (o *countingObserver) ExportFailed(plan string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, plan)
}

func runDocs(uid, plan, source string) []document.Document {
	docs := []document.Document{
		&document.Start{UID: uid, ScanID: 1, Time: 100, PlanName: plan, Detectors: []string{"det1"},
			Fields: map[string]any{"plan_name": plan, "sample": "water"}},
		&document.Descriptor{UID: uid + "-d1", RunStart: uid, Name: "primary", DataKeys: map[string]document.DataKey{
			"det1": {Source: source, DType: "number"},
		}},
	}
	for i, v := range []float64{1, 2, 3} {
		ts := 100 + 0.1*float64(i)
		docs = append(docs, &document.Event{
			UID: uid + "-e", Descriptor: uid + "-d1", SeqNum: int64(i + 1), Time: ts,
			Data: map[string]any{"det1": v}, Timestamps: map[string]float64{"det1": ts},
		})
	}

	return append(docs, &document.Stop{UID: uid + "-s", RunStart: uid, Time: 101, ExitStatus: "success"})
}

func newRecorder(t *testing.T, dir string, opts ...Option) (*Recorder, *countingObserver) {
	t.Helper()

	obs := newCountingObserver()
	base := []Option{
		WithLogger(logger.NewPermissiveMockLogger()),
		WithObserver(obs),
		WithExportOptions(exporter.WithOutputDir(dir), exporter.WithLocation(time.UTC)),
	}
	rec, err := New(append(base, opts...)...)
	require.NoError(t, err)

	return rec, obs
}

func receiveAll(t *testing.T, rec *Recorder, docs []document.Document) error {
	t.Helper()

	var last error
	for _, doc := range docs {
		last = rec.Receive(doc)
	}

	return last
}

func files(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

func TestRecorder_Run(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	rec, obs := newRecorder(t, dir)

	require.NoError(receiveAll(t, rec, runDocs("abcdef0123", "count", "det:readback")))
	require.Equal(runbuf.Idle, rec.Run().State())
	require.Equal([]string{"19700101-000140-S0001-abcdef0.nxs"}, files(t, dir))

	f, err := nexus.Open(filepath.Join(dir, "19700101-000140-S0001-abcdef0.nxs"))
	require.NoError(err)
	node, err := f.Resolve(exporter.StreamPath("primary", "det1", exporter.ValueField))
	require.NoError(err)
	require.Equal([]float64{1, 2, 3}, node.(*nexus.Dataset).Data().Floats())

	record, ok := rec.History().Get("abcdef0123")
	require.True(ok)
	require.True(record.OK())
	require.Equal(filepath.Join(dir, "19700101-000140-S0001-abcdef0.nxs"), record.Path)
	require.Equal("success", record.ExitStatus)

	require.Equal(3, obs.received[document.EventKind])
	require.Equal([]string{"count"}, obs.exported)
}

func TestRecorder_PlanFilter(t *testing.T) {
	tests := []struct {
		name  string
		plan  string
		files int
	}{
		{name: "allowed", plan: "scanA", files: 1},
		{name: "refused", plan: "scanB", files: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			rec, obs := newRecorder(t, dir, WithAllowedPlans("scanA"))

			require.NoError(t, receiveAll(t, rec, runDocs("uid-"+tt.plan, tt.plan, "det")))
			assert.Len(t, files(t, dir), tt.files)
			assert.Equal(t, runbuf.Idle, rec.Run().State())

			if tt.files == 0 {
				assert.Equal(t, []string{"scanB"}, obs.skipped)
				assert.Equal(t, 3, obs.dropped[document.EventKind])
				assert.Equal(t, 1, obs.dropped[document.StopKind])
				assert.Equal(t, 0, rec.History().Len())
			}
		})
	}
}

func TestRecorder_RefusedStartDiscardsActiveRun(t *testing.T) {
	dir := t.TempDir()
	rec, _ := newRecorder(t, dir, WithAllowedPlans("scanA"))

	docs := runDocs("uid-a", "scanA", "det")
	require.NoError(t, receiveAll(t, rec, docs[:3]))
	require.True(t, rec.Run().IsScanning())

	require.NoError(t, rec.Receive(&document.Start{UID: "uid-b", PlanName: "scanB"}))
	require.False(t, rec.Run().IsScanning())

	// the remainder of the first run is ignored
	require.NoError(t, receiveAll(t, rec, docs[3:]))
	assert.Empty(t, files(t, dir))
}

func TestRecorder_ExpressionFilter(t *testing.T) {
	filter, err := NewPlanFilter(nil, `scan_id >= 2 && md.sample == "water"`)
	require.NoError(t, err)

	dir := t.TempDir()
	rec, _ := newRecorder(t, dir, WithPlanFilter(filter))

	require.NoError(t, receiveAll(t, rec, runDocs("uid-1", "count", "det")))
	assert.Empty(t, files(t, dir))

	docs := runDocs("uid-2", "count", "det")
	docs[0].(*document.Start).ScanID = 2
	require.NoError(t, receiveAll(t, rec, docs))
	assert.Len(t, files(t, dir), 1)
}

func TestRecorder_UnknownDocument(t *testing.T) {
	rec, _ := newRecorder(t, t.TempDir())

	err := rec.ReceiveMap("bulk_events", map[string]any{})
	require.ErrorIs(t, err, ErrUnknownDocument)

	require.ErrorIs(t, rec.Receive(nil), ErrUnknownDocument)
	require.Equal(t, runbuf.Idle, rec.Run().State())

	require.NoError(t, rec.ReceiveMap("start", map[string]any{"uid": "u1", "plan_name": "count"}))
	require.ErrorIs(t, rec.ReceiveMap("bulk_events", map[string]any{}), ErrUnknownDocument)
	require.True(t, rec.Run().IsScanning())
	require.Equal(t, "u1", rec.Run().UID)
}

func TestRecorder_ExportFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	rec, obs := newRecorder(t, dir)

	err := receiveAll(t, rec, runDocs("uid-1", "count", "det"))
	require.ErrorIs(t, err, exporter.ErrCreateFile)
	require.Equal(t, runbuf.Idle, rec.Run().State())
	require.Equal(t, []string{"count"}, obs.failed)

	record, ok := rec.History().Get("uid-1")
	require.True(t, ok)
	require.False(t, record.OK())

	// the recorder keeps working after a failed export
	require.NoError(t, rec.Receive(&document.Start{UID: "uid-2", PlanName: "count"}))
	require.True(t, rec.Run().IsScanning())
}

func TestRecorder_MultipleDescriptors(t *testing.T) {
	dir := t.TempDir()
	rec, _ := newRecorder(t, dir)

	docs := runDocs("uid-1", "count", "det")
	extra := &document.Descriptor{UID: "uid-1-d2", RunStart: "uid-1", Name: "primary", DataKeys: map[string]document.DataKey{
		"det1": {Source: "det"},
	}}
	docs = append(docs[:2], append([]document.Document{extra}, docs[2:]...)...)

	err := receiveAll(t, rec, docs)
	require.ErrorIs(t, err, runbuf.ErrMultipleDescriptors)
	require.Equal(t, runbuf.Idle, rec.Run().State())
	assert.Empty(t, files(t, dir))
}

func TestRecorder_DroppedKeys(t *testing.T) {
	rec, obs := newRecorder(t, t.TempDir())

	docs := runDocs("uid-1", "count", "det")
	require.NoError(t, receiveAll(t, rec, docs[:2]))
	require.NoError(t, rec.Receive(&document.Event{Descriptor: "uid-1-d1", Time: 100,
		Data: map[string]any{"det1": 1.0, "ghost": 2.0}}))
	require.NoError(t, rec.Receive(&document.Event{Descriptor: "nope", Time: 100,
		Data: map[string]any{"det1": 1.0}}))

	desc, err := rec.Run().Streams.Stream("primary")
	require.NoError(t, err)
	entry, ok := desc.Entry("det1")
	require.True(t, ok)
	assert.Equal(t, 1, entry.Len())
	assert.Equal(t, 2, obs.keys)
}

func TestRecorder_StopForOtherRun(t *testing.T) {
	dir := t.TempDir()
	rec, _ := newRecorder(t, dir)

	docs := runDocs("uid-1", "count", "det")
	require.NoError(t, receiveAll(t, rec, docs[:len(docs)-1]))
	require.NoError(t, rec.Receive(&document.Stop{RunStart: "uid-0", ExitStatus: "success"}))
	require.True(t, rec.Run().IsScanning())
	assert.Empty(t, files(t, dir))

	require.NoError(t, rec.Receive(docs[len(docs)-1]))
	assert.Len(t, files(t, dir), 1)
}

func TestRecorder_Replay(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	w := document.NewJSONWriter(&buf)
	for _, doc := range runDocs("uid-1", "count", "det") {
		require.NoError(w.Write(doc))
	}
	for _, doc := range runDocs("uid-2", "count", "motor") {
		require.NoError(w.Write(doc))
	}

	dir := t.TempDir()
	rec, _ := newRecorder(t, dir)
	n, err := rec.Replay(context.Background(), document.NewJSONReader(&buf))
	require.NoError(err)
	require.Equal(12, n)
	require.Equal(2, rec.History().Len())

	records := rec.History().Records()
	require.Len(records, 2)
	for _, r := range records {
		require.True(r.OK(), r.Error)
	}
}

func TestRecorder_ReplayCanceled(t *testing.T) {
	rec, _ := newRecorder(t, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	n, err := rec.Replay(ctx, document.NewJSONReader(&buf))
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, n)
}
