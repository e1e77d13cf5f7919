package tracker

import (
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/leighmacdonald/slottrack/internal/cs"
)

// Player is a tracked human player. Bots and observers never enter the
// roster.
type Player struct {
	SteamID steamid.SteamID
	Name    string
	Team    cs.Team
}

// Roster owns the set of currently tracked players per side. It is not safe
// for concurrent use, the Tracker serializes all access.
type Roster struct {
	players []Player
	// While the server hibernates the roster stays empty by policy, late
	// events must not repopulate it.
	frozen bool
}

// Upsert removes any existing entry for the player from both sides and then
// inserts it once into its current side. A player that moved to spectator is
// only removed.
func (r *Roster) Upsert(player Player) {
	r.Remove(player.SteamID)

	if r.frozen || !player.Team.Playing() {
		return
	}

	r.players = append(r.players, player)
}

// Remove is idempotent, removing an absent id is a no-op.
func (r *Roster) Remove(sid steamid.SteamID) {
	var remaining []Player
	for _, player := range r.players {
		if player.SteamID.Equal(sid) {
			continue
		}
		remaining = append(remaining, player)
	}

	r.players = remaining
}

func (r *Roster) Find(sid steamid.SteamID) (Player, bool) {
	for _, player := range r.players {
		if player.SteamID.Equal(sid) {
			return player, true
		}
	}

	return Player{}, false
}

// All returns a copy of the tracked players, T side first.
func (r *Roster) All() []Player {
	players := make([]Player, 0, len(r.players))
	for _, team := range []cs.Team{cs.T, cs.CT} {
		for _, player := range r.players {
			if player.Team == team {
				players = append(players, player)
			}
		}
	}

	return players
}

// TeamCounts returns the number of tracked players on each side.
func (r *Roster) TeamCounts() (int, int) {
	var tCount, ctCount int
	for _, player := range r.players {
		switch player.Team {
		case cs.T:
			tCount++
		case cs.CT:
			ctCount++
		}
	}

	return tCount, ctCount
}

func (r *Roster) Count() int {
	return len(r.players)
}

func (r *Roster) Clear() {
	r.players = nil
}

// SetFrozen toggles the hibernation policy: a frozen roster is cleared and
// discards all inserts until thawed.
func (r *Roster) SetFrozen(frozen bool) {
	r.frozen = frozen
	if frozen {
		r.Clear()
	}
}
