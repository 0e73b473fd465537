package exporter

import (
	"fmt"
	"math"
	"time"

	"github.com/arloliu/go-nxrec/runbuf"
)

// FileNamer returns the output file name, without directory, of a run.
// ext is the encoder's extension without the leading dot.
type FileNamer func(run *runbuf.Run, ext string) string

// EpochTime converts epoch seconds into a time.Time in loc.
func EpochTime(epoch float64, loc *time.Location) time.Time {
	sec, frac := math.Modf(epoch)
	return time.Unix(int64(sec), int64(frac*1e9)).In(loc)
}

// DefaultFileNamer names files {YYYYMMDD}-{HHMMSS}-S{scan_id:04d}-{uid[:7]}.{ext},
// using the run start time in loc.
func DefaultFileNamer(loc *time.Location) FileNamer {
	return func(run *runbuf.Run, ext string) string {
		start := EpochTime(run.StartTime, loc)
		uid := run.UID
		if len(uid) > 7 {
			uid = uid[:7]
		}

		return fmt.Sprintf("%s-S%04d-%s.%s", start.Format("20060102-150405"), run.ScanID, uid, ext)
	}
}

const isoLayout = "2006-01-02T15:04:05.000000Z07:00"

// isoTime formats epoch seconds as ISO-8601 with microseconds.
func isoTime(epoch float64, loc *time.Location) string {
	return EpochTime(epoch, loc).Format(isoLayout)
}
