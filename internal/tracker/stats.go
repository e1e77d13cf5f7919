package tracker

import (
	"github.com/leighmacdonald/steamid/v4/steamid"
)

// Scoreboard points awarded for the actions we observe directly from the
// event stream.
const (
	scoreKill   = 2
	scoreAssist = 1
	scorePlant  = 2
	scoreDefuse = 2
	scoreRescue = 2
)

// StatBlock is the per-player counter set included in every snapshot.
type StatBlock struct {
	Kills         int
	Deaths        int
	Assists       int
	Score         int
	HeadshotKills int
	MVPs          int
	Ping          int
}

// StatField is a single observed counter value. Known is false when the host
// did not expose the field, in which case the previously cached value is
// retained.
type StatField struct {
	Value int
	Known bool
}

func Known(value int) StatField {
	return StatField{Value: value, Known: true}
}

// StatSample is one pull-query observation for a player. Any subset of fields
// may be unknown.
type StatSample struct {
	SteamID       steamid.SteamID
	Name          string
	Kills         StatField
	Deaths        StatField
	Assists       StatField
	Score         StatField
	HeadshotKills StatField
	MVPs          StatField
	Ping          StatField
}

// StatCache holds the last known counters per player. Counters survive team
// switches and are dropped on disconnect or reset. Not safe for concurrent
// use, the Tracker serializes all access.
type StatCache struct {
	blocks map[steamid.SteamID]*StatBlock
}

func (c *StatCache) block(sid steamid.SteamID) *StatBlock {
	if c.blocks == nil {
		c.blocks = map[steamid.SteamID]*StatBlock{}
	}

	entry, found := c.blocks[sid]
	if !found {
		entry = &StatBlock{}
		c.blocks[sid] = entry
	}

	return entry
}

// Block returns the cached counters for a player, zero values if the player
// was never observed.
func (c *StatCache) Block(sid steamid.SteamID) StatBlock {
	if entry, found := c.blocks[sid]; found {
		return *entry
	}

	return StatBlock{}
}

func (c *StatCache) AddKill(sid steamid.SteamID, headshot bool) {
	entry := c.block(sid)
	entry.Kills++
	entry.Score += scoreKill
	if headshot {
		entry.HeadshotKills++
	}
}

func (c *StatCache) AddDeath(sid steamid.SteamID) {
	c.block(sid).Deaths++
}

func (c *StatCache) AddAssist(sid steamid.SteamID) {
	entry := c.block(sid)
	entry.Assists++
	entry.Score += scoreAssist
}

func (c *StatCache) AddMVP(sid steamid.SteamID) {
	c.block(sid).MVPs++
}

func (c *StatCache) AddScore(sid steamid.SteamID, points int) {
	c.block(sid).Score += points
}

// Apply merges a sample into the cache, ignoring unknown fields, and reports
// whether any cached value actually changed.
func (c *StatCache) Apply(sample StatSample) bool {
	entry := c.block(sample.SteamID)
	changed := false

	merge := func(target *int, field StatField) {
		if !field.Known || *target == field.Value {
			return
		}
		*target = field.Value
		changed = true
	}

	merge(&entry.Kills, sample.Kills)
	merge(&entry.Deaths, sample.Deaths)
	merge(&entry.Assists, sample.Assists)
	merge(&entry.Score, sample.Score)
	merge(&entry.HeadshotKills, sample.HeadshotKills)
	merge(&entry.MVPs, sample.MVPs)
	merge(&entry.Ping, sample.Ping)

	return changed
}

// ApplyAll merges a batch of samples, reporting whether anything changed so
// callers can skip a sync when the host reported no news.
func (c *StatCache) ApplyAll(samples []StatSample) bool {
	changed := false
	for _, sample := range samples {
		if c.Apply(sample) {
			changed = true
		}
	}

	return changed
}

func (c *StatCache) Remove(sid steamid.SteamID) {
	delete(c.blocks, sid)
}

func (c *StatCache) Clear() {
	c.blocks = nil
}
