package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-nxrec/document"
)

func TestMetrics_Observer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg, "")
	require.NoError(t, err)

	m.DocumentReceived(document.StartKind)
	m.DocumentReceived(document.EventKind)
	m.DocumentReceived(document.EventKind)
	m.DocumentDropped(document.EventKind)
	m.EventKeysDropped(3)
	m.RunSkipped("count")
	m.RunExported("saxs_scan", 20*time.Millisecond)
	m.ExportFailed("saxs_scan")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.documents.WithLabelValues("event")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documents.WithLabelValues("start")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.documents.WithLabelValues("stop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("event")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.droppedKeys))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues("count")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exported.WithLabelValues("saxs_scan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failed.WithLabelValues("saxs_scan")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))

	assert.EqualValues(t, 1, m.Runs.Exported.Load())
	assert.EqualValues(t, 1, m.Runs.Failed.Load())
	assert.EqualValues(t, 1, m.Runs.Skipped.Load())
	assert.NotZero(t, m.Runs.LastExport.Load())

	expected := `
# HELP nxrec_event_keys_dropped_total Event values skipped because their key or descriptor was unknown.
# TYPE nxrec_event_keys_dropped_total counter
nxrec_event_keys_dropped_total 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "nxrec_event_keys_dropped_total"))
}

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, "beamline")
	require.NoError(t, err)

	// the same names cannot be registered twice
	_, err = New(reg, "beamline")
	require.Error(t, err)

	_, err = New(nil, "")
	require.Error(t, err)
}
