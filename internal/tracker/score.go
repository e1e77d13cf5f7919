package tracker

import (
	"github.com/leighmacdonald/slottrack/internal/cs"
)

// Scoreboard accumulates round wins per side label and applies the one-shot
// half-time swap so that displayed scores keep following the physical teams
// when the server swaps their sides. Not safe for concurrent use.
type Scoreboard struct {
	tRounds      int
	ctRounds     int
	sidesSwapped bool
	// lastTotal is the previously observed combined total, used for the
	// level-crossing check so a missed round cannot skip the swap.
	lastTotal int
}

func (s *Scoreboard) Rounds() (int, int) {
	return s.tRounds, s.ctRounds
}

func (s *Scoreboard) Total() int {
	return s.tRounds + s.ctRounds
}

func (s *Scoreboard) Swapped() bool {
	return s.sidesSwapped
}

// Record applies an authoritative round win. The running totals reported by
// the server are adopted when they are ahead of our own counters, which
// happens after missed log lines. Reports whether the half-time swap was
// applied.
func (s *Scoreboard) Record(winner cs.Team, reportedCT int, reportedT int) bool {
	switch winner {
	case cs.T:
		s.tRounds++
	case cs.CT:
		s.ctRounds++
	}

	// Only trust reported totals while sides are still aligned. After the
	// swap the server labels no longer match our corrected counters.
	if !s.sidesSwapped {
		s.ctRounds = max(s.ctRounds, reportedCT)
		s.tRounds = max(s.tRounds, reportedT)
	}

	return s.checkHalfTime()
}

// checkHalfTime swaps the counters exactly once per match, when the combined
// total first reaches the half-time threshold. Level-crossing rather than
// equality so that an observation gap over the threshold still triggers it.
func (s *Scoreboard) checkHalfTime() bool {
	total := s.tRounds + s.ctRounds
	crossed := !s.sidesSwapped && total >= cs.HalfTimeRounds && s.lastTotal < cs.HalfTimeRounds
	if crossed {
		s.tRounds, s.ctRounds = s.ctRounds, s.tRounds
		s.sidesSwapped = true
	}

	s.lastTotal = total

	return crossed
}

func (s *Scoreboard) Reset() {
	s.tRounds = 0
	s.ctRounds = 0
	s.sidesSwapped = false
	s.lastTotal = 0
}
