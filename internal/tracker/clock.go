package tracker

import (
	"time"
)

// serverClock aligns the local wall clock with the timestamps the host stamps
// onto its log lines, so that round timing stays correct even when the host
// clock and ours drift apart. Before the first timestamped line arrives it
// degrades to plain wall clock time.
type serverClock struct {
	offset time.Duration
}

func (c *serverClock) Observe(hostTime time.Time) {
	if hostTime.IsZero() {
		return
	}

	c.offset = time.Until(hostTime)
}

func (c *serverClock) Now() time.Time {
	return time.Now().Add(c.offset)
}
