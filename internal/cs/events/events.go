// Package events parses srcds log lines into typed game events and routes
// them to subscribers.
package events

import (
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/leighmacdonald/slottrack/internal/cs"
)

type EventType int

const (
	Any EventType = iota - 1
	Connect
	Disconnect
	TeamChange
	RoundStart
	RoundEnd
	RoundWin
	Kill
	Assist
	Damage
	BombPlanted
	BombDefused
	HostageRescued
	RoundMVP
	MapChange
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Raw       string
	Data      any
}

// PlayerRef identifies the subject of a log line. Bots and the server console
// show up in logs with pseudo steam ids and are flagged so handlers can skip
// them.
type PlayerRef struct {
	Name    string
	UserID  int
	SteamID steamid.SteamID
	Team    cs.Team
	Bot     bool
}

// Valid is false for bots, GOTV and malformed subjects.
func (p PlayerRef) Valid() bool {
	return !p.Bot && p.SteamID.Valid()
}

type AnyEvent struct {
	Raw string
}

type ConnectEvent struct {
	Player  PlayerRef
	Address string
}

type DisconnectEvent struct {
	Player PlayerRef
	Reason string
}

type TeamChangeEvent struct {
	Player PlayerRef
	From   cs.Team
	To     cs.Team
}

type RoundStartEvent struct{}

type RoundEndEvent struct{}

// RoundWinEvent carries the authoritative winner along with the score the
// server believes it has, which may disagree with our own counters.
type RoundWinEvent struct {
	Winner   cs.Team
	Notice   string
	CTRounds int
	TRounds  int
}

type KillEvent struct {
	Killer   PlayerRef
	Victim   PlayerRef
	Weapon   string
	Headshot bool
}

type AssistEvent struct {
	Assister PlayerRef
	Victim   PlayerRef
}

type DamageEvent struct {
	Attacker PlayerRef
	Victim   PlayerRef
	Weapon   string
	Damage   int
}

type BombPlantedEvent struct {
	Player PlayerRef
}

type BombDefusedEvent struct {
	Player PlayerRef
}

type HostageRescuedEvent struct {
	Player PlayerRef
}

type RoundMVPEvent struct {
	Player PlayerRef
}

type MapChangeEvent struct {
	MapName string
}
