// Package cs models the parts of a Counter-Strike dedicated server that the
// tracker observes: teams, the live status output and console variables.
package cs

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/leighmacdonald/steamid/v4/steamid"
)

const (
	// Slot count reported until the host tells us the real value.
	DefaultSlots = 10
	// mp_roundtime 1.92 minutes, the competitive default.
	DefaultRoundSeconds = 115
	// Round wins across both sides that trigger the half-time side swap.
	HalfTimeRounds = 12
)

// Console variables read from the host. Reads are best-effort, values may be
// missing or stale.
const (
	CVarRoundTime  = "mp_roundtime"
	CVarPassword   = "sv_password"
	CVarMaxPlayers = "sv_visiblemaxplayers"
)

var (
	ErrCVarNotFound = errors.New("cvar not present in response")
	ErrCVarValue    = errors.New("failed to parse cvar value")
)

// Team uses the srcds team index numbering.
type Team int

const (
	Unassigned Team = iota
	Spectator
	T
	CT
)

func (t Team) String() string {
	switch t {
	case T:
		return "T"
	case CT:
		return "CT"
	case Spectator:
		return "Spectator"
	default:
		return "Unassigned"
	}
}

// Playing is true for the two sides that can actually hold rounds.
func (t Team) Playing() bool {
	return t == T || t == CT
}

// Opposite returns the other playing side, or Unassigned for non-playing teams.
func (t Team) Opposite() Team {
	switch t {
	case T:
		return CT
	case CT:
		return T
	default:
		return Unassigned
	}
}

// ParseTeam maps the team names used in srcds log lines onto a Team.
func ParseTeam(name string) Team {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TERRORIST", "T":
		return T
	case "CT":
		return CT
	case "SPECTATOR":
		return Spectator
	default:
		return Unassigned
	}
}

// StatusPlayer is a single row of the `status` command player table.
type StatusPlayer struct {
	Name      string
	SteamID   steamid.SteamID
	UserID    int
	Ping      int
	Loss      int
	Connected bool
	Bot       bool
}

// ServerStatus is the parsed result of the `status` rcon command.
type ServerStatus struct {
	Hostname string
	Map      string
	Humans   int
	Bots     int
	SlotsMax int
	Players  []StatusPlayer
}

var cvarValueRx = regexp.MustCompile(`"(?P<name>[A-Za-z0-9_]+)"\s(?:=|is)\s"(?P<value>.*?)"`)

// ParseCVarValue extracts the current value of a named cvar from the raw
// console response of querying it.
func ParseCVarValue(response string, name string) (string, error) {
	for line := range strings.Lines(response) {
		match := cvarValueRx.FindStringSubmatch(line)
		if match == nil || match[1] != name {
			continue
		}

		return match[2], nil
	}

	return "", fmt.Errorf("%w: %s", ErrCVarNotFound, name)
}

// RoundSeconds converts a mp_roundtime value, which the game stores in
// fractional minutes, into whole seconds.
func RoundSeconds(value string) (int, error) {
	minutes, errParse := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if errParse != nil {
		return 0, errors.Join(errParse, ErrCVarValue)
	}

	if minutes <= 0 {
		return 0, ErrCVarValue
	}

	return int(math.Floor(minutes * 60)), nil
}
