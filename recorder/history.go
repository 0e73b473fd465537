package recorder

import (
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Record is the outcome of one run that reached its stop document.
type Record struct {
	UID        string        `json:"uid"`
	ScanID     int64         `json:"scan_id"`
	PlanName   string        `json:"plan_name"`
	ExitStatus string        `json:"exit_status"`
	Path       string        `json:"path,omitempty"`
	Error      string        `json:"error,omitempty"`
	Warnings   int           `json:"warnings"`
	Duration   time.Duration `json:"duration"`
	StoppedAt  time.Time     `json:"stopped_at"`
}

// OK reports whether the run was written without error.
func (r Record) OK() bool {
	return r.Error == ""
}

// History keeps the export records by run uid. It may be read concurrently with the
// recorder writing to it.
type History struct {
	records *xsync.MapOf[string, Record]
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{records: xsync.NewMapOf[string, Record]()}
}

// Add stores rec, replacing a previous record with the same uid.
func (h *History) Add(rec Record) {
	h.records.Store(rec.UID, rec)
}

// Get returns the record of uid.
func (h *History) Get(uid string) (Record, bool) {
	return h.records.Load(uid)
}

// Len returns the number of records.
func (h *History) Len() int {
	return h.records.Size()
}

// Records returns every record, oldest first.
func (h *History) Records() []Record {
	out := make([]Record, 0, h.records.Size())
	h.records.Range(func(_ string, rec Record) bool {
		out = append(out, rec)
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].StoppedAt.Equal(out[j].StoppedAt) {
			return out[i].UID < out[j].UID
		}
		return out[i].StoppedAt.Before(out[j].StoppedAt)
	})

	return out
}

// Clear removes every record.
func (h *History) Clear() {
	h.records.Clear()
}
