package alert

import (
	"sync/atomic"
	"time"
)

// Counters tracks alert bookkeeping shared between the acquisition loop
// (writer) and the status endpoint (readers). Values reset on restart.
type Counters struct {
	alerts     atomic.Int64
	lastAlert  atomic.Int64 // unix nanos, 0 if never
	lastReport atomic.Int64
}

// RecordAlert counts one automatic fall alert.
func (c *Counters) RecordAlert(at time.Time) {
	c.alerts.Add(1)
	c.lastAlert.Store(at.UnixNano())
}

// RecordReport notes when a report was last enqueued.
func (c *Counters) RecordReport(at time.Time) {
	c.lastReport.Store(at.UnixNano())
}

// AlertCount returns the number of automatic alerts since start.
func (c *Counters) AlertCount() int64 {
	return c.alerts.Load()
}

// LastAlert returns when the last automatic alert fired, or the zero time.
func (c *Counters) LastAlert() time.Time {
	return fromNanos(c.lastAlert.Load())
}

// LastReport returns when the last report was enqueued, or the zero time.
func (c *Counters) LastReport() time.Time {
	return fromNanos(c.lastReport.Load())
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
