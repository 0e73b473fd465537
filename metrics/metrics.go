// Package metrics exports recorder activity as prometheus metrics.
package metrics

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/go-nxrec/document"
	"github.com/arloliu/go-nxrec/recorder"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "nxrec"

// RunCounters contains atomic run counters.
// They back prometheus CounterFunc and GaugeFunc collectors and can be read directly.
type RunCounters struct {
	// Exported indicates the number of runs written to a file.
	Exported atomic.Uint64
	// Failed indicates the number of runs whose export returned an error.
	Failed atomic.Uint64
	// Skipped indicates the number of runs refused by the plan filter.
	Skipped atomic.Uint64
	// LastExport holds the unix time in nanoseconds of the last successful export.
	LastExport atomic.Int64
}

// Metrics implements recorder.Observer on prometheus collectors.
type Metrics struct {
	Runs RunCounters

	documents   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	droppedKeys prometheus.Counter
	exported    *prometheus.CounterVec
	failed      *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	duration    prometheus.Histogram
}

var _ recorder.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with reg. An empty namespace uses DefaultNamespace.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if reg == nil {
		return nil, errors.New("metrics registerer is nil")
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_received_total",
			Help:      "Documents passed to the recorder, by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_dropped_total",
			Help:      "Documents ignored because no run was active, by kind.",
		}, []string{"kind"}),
		droppedKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_keys_dropped_total",
			Help:      "Event values skipped because their key or descriptor was unknown.",
		}),
		exported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_exported_total",
			Help:      "Runs written to a file, by plan.",
		}, []string{"plan"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_failures_total",
			Help:      "Runs whose export returned an error, by plan.",
		}, []string{"plan"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_skipped_total",
			Help:      "Runs refused by the plan filter, by plan.",
		}, []string{"plan"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Time spent building and writing one file.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}

	lastExport := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_export_timestamp_seconds",
		Help:      "Unix time of the last successful export.",
	}, func() float64 {
		return float64(m.Runs.LastExport.Load()) / 1e9
	})

	collectors := []prometheus.Collector{
		m.documents, m.dropped, m.droppedKeys, m.exported, m.failed, m.skipped, m.duration, lastExport,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	for _, kind := range document.Kinds() {
		m.documents.WithLabelValues(kind.String())
	}

	return m, nil
}

func (m *Metrics) DocumentReceived(kind document.Kind) {
	m.documents.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) DocumentDropped(kind document.Kind) {
	m.dropped.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) EventKeysDropped(n int) {
	m.droppedKeys.Add(float64(n))
}

func (m *Metrics) RunSkipped(plan string) {
	m.Runs.Skipped.Add(1)
	m.skipped.WithLabelValues(plan).Inc()
}

func (m *Metrics) RunExported(plan string, elapsed time.Duration) {
	m.Runs.Exported.Add(1)
	m.Runs.LastExport.Store(time.Now().UnixNano())
	m.exported.WithLabelValues(plan).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) ExportFailed(plan string) {
	m.Runs.Failed.Add(1)
	m.failed.WithLabelValues(plan).Inc()
}
