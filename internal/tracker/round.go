package tracker

import (
	"time"
)

type RoundPhase int

const (
	RoundIdle RoundPhase = iota
	RoundInProgress
	RoundEnded
)

// Round tracks the lifecycle of the current round against the host clock.
// The explicit round-end event is authoritative, the timer expiry path only
// exists to catch missed events. Not safe for concurrent use.
type Round struct {
	phase     RoundPhase
	startedAt time.Time
	duration  int
	remaining int
}

func (r *Round) Phase() RoundPhase {
	return r.phase
}

func (r *Round) InProgress() bool {
	return r.phase == RoundInProgress
}

func (r *Round) Remaining() int {
	return r.remaining
}

func (r *Round) StartedAt() time.Time {
	return r.startedAt
}

// Duration returns the last known round duration in seconds.
func (r *Round) Duration() int {
	return r.duration
}

// Start begins a new round clock of the given duration.
func (r *Round) Start(now time.Time, durationSeconds int) {
	r.phase = RoundInProgress
	r.startedAt = now
	r.duration = durationSeconds
	r.remaining = durationSeconds
}

// Tick recomputes the remaining time while a round is in progress, reporting
// true when the clock ran out and the round transitioned to ended.
func (r *Round) Tick(now time.Time) bool {
	if r.phase != RoundInProgress {
		return false
	}

	remaining := r.duration - int(now.Sub(r.startedAt).Seconds())
	if remaining <= 0 {
		r.remaining = 0
		r.phase = RoundEnded

		return true
	}

	r.remaining = remaining

	return false
}

// End forces the round to ended regardless of the timer state.
func (r *Round) End() {
	r.phase = RoundEnded
	r.remaining = 0
}

// Reset drops back to idle, keeping the last known duration.
func (r *Round) Reset() {
	r.phase = RoundIdle
	r.startedAt = time.Time{}
	r.remaining = 0
}
