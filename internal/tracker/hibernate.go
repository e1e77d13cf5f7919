package tracker

import (
	"time"
)

type HibernationChange int

const (
	HibernationUnchanged HibernationChange = iota
	HibernationEntered
	HibernationLeft
)

// Hibernation classifies the server as active or idle based on the live,
// host-reported player count. The roster may lag behind events, so it is
// never consulted here. Not safe for concurrent use.
type Hibernation struct {
	idle         bool
	count        int
	since        time.Time
	lastObserved int
}

func (h *Hibernation) Idle() bool {
	return h.idle
}

// Count is the number of idle transitions seen this process lifetime.
func (h *Hibernation) Count() int {
	return h.count
}

func (h *Hibernation) Since() time.Time {
	return h.since
}

// Observe feeds one polled player count into the detector. Entering idle
// requires an actual zero-crossing: the previously observed count must have
// been positive.
func (h *Hibernation) Observe(liveCount int, now time.Time) HibernationChange {
	defer func() {
		h.lastObserved = liveCount
	}()

	if !h.idle && h.lastObserved > 0 && liveCount == 0 {
		h.enter(now)

		return HibernationEntered
	}

	if h.idle && liveCount > 0 {
		h.idle = false

		return HibernationLeft
	}

	return HibernationUnchanged
}

// Force flags the server idle outside the normal zero-crossing path. Used
// when a ghost score is detected: round wins on the board with nobody
// connected means the crossing was missed.
func (h *Hibernation) Force(now time.Time) bool {
	if h.idle {
		return false
	}

	h.enter(now)
	h.lastObserved = 0

	return true
}

func (h *Hibernation) enter(now time.Time) {
	h.idle = true
	h.count++
	h.since = now
}
