package events

import (
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/leighmacdonald/slottrack/internal/cs"
)

const logTimestampFormat = "01/02/2006 - 15:04:05"

var (
	ErrNoMatch        = errors.New("no match found")
	ErrParseTimestamp = errors.New("failed to parse timestamp")
)

// Log lines arrive either bare (console.log) or with the srcds "L <date>:"
// prefix (udp log listener), so both parts are optional.
const linePrefix = `^(?:L\s)?(?:([01]?\d/[0-3]\d/\d{4}\s-\s\d{2}:\d{2}:\d{2}):\s)?`

// playerToken matches the `"name<userid><steamid><team>"` subject format.
const playerToken = `"(.+?)<(\d+)><([^<>]*)><([^<>]*)>"`

// origin matches the optional `[x y z]` world position some lines carry.
const origin = `(?:\s\[[-\d\s]+\])?`

func (e *Event) ApplyTimestamp(tsString string) error {
	parsed, errParse := time.Parse(logTimestampFormat, tsString)
	if errParse != nil {
		return errors.Join(errParse, ErrParseTimestamp)
	}

	e.Timestamp = parsed

	return nil
}

type parser struct {
	rx []*regexp.Regexp
}

func newParser() *parser {
	return &parser{
		// The index of each expression must match the EventType const values.
		rx: []*regexp.Regexp{
			// "Name<2><[U:1:1]><>" connected, address "1.2.3.4:27005"
			regexp.MustCompile(linePrefix + playerToken + `\sconnected,\saddress\s"(.*?)"$`),
			// "Name<2><[U:1:1]><CT>" disconnected (reason "Disconnect")
			regexp.MustCompile(linePrefix + playerToken + `\sdisconnected(?:\s\(reason\s"(.*?)"\))?$`),
			// "Name<2><[U:1:1]>" switched from team <TERRORIST> to <CT>
			regexp.MustCompile(linePrefix + `"(.+?)<(\d+)><([^<>]*)>(?:<[^<>]*>)?"\sswitched\sfrom\steam\s<([^<>]*)>\sto\s<([^<>]*)>$`),
			// World triggered "Round_Start"
			regexp.MustCompile(linePrefix + `World\striggered\s"Round_Start"`),
			// World triggered "Round_End"
			regexp.MustCompile(linePrefix + `World\striggered\s"Round_End"`),
			// Team "CT" triggered "SFUI_Notice_CTs_Win" (CT "5") (T "3")
			regexp.MustCompile(linePrefix + `Team\s"(CT|TERRORIST)"\striggered\s"([A-Za-z_]+)"\s\(CT\s"(\d+)"\)\s\(T\s"(\d+)"\)$`),
			// "A<2><[U:1:1]><CT>" [1 2 3] killed "B<3><[U:1:2]><TERRORIST>" [4 5 6] with "ak47" (headshot)
			regexp.MustCompile(linePrefix + playerToken + origin + `\skilled\s` + playerToken + origin + `\swith\s"(.+?)"((?:\s\(.+?\))*)$`),
			// "A<2><[U:1:1]><CT>" assisted killing "B<3><[U:1:2]><TERRORIST>"
			regexp.MustCompile(linePrefix + playerToken + `\sassisted\skilling\s` + playerToken + `$`),
			// "A<2><[U:1:1]><T>" [..] attacked "B<3><[U:1:2]><CT>" [..] with "glock" (damage "27") ...
			regexp.MustCompile(linePrefix + playerToken + origin + `\sattacked\s` + playerToken + origin + `\swith\s"(.+?)"\s\(damage\s"(\d+)"\)`),
			regexp.MustCompile(linePrefix + playerToken + `\striggered\s"Planted_The_Bomb"`),
			regexp.MustCompile(linePrefix + playerToken + `\striggered\s"Defused_The_Bomb"`),
			regexp.MustCompile(linePrefix + playerToken + `\striggered\s"Rescued_A_Hostage"`),
			regexp.MustCompile(linePrefix + playerToken + `\striggered\s"Round_MVP"`),
			// Started map "de_dust2" (CRC "-1384208105")
			regexp.MustCompile(linePrefix + `(?:Started|Loading)\smap\s"(.+?)"`),
		},
	}
}

func (p *parser) parse(msg string, outEvent *Event) error {
	for parserIdx, rxMatcher := range p.rx {
		match := rxMatcher.FindStringSubmatch(msg)
		if match == nil {
			continue
		}

		outEvent.Raw = msg
		outEvent.Type = EventType(parserIdx)

		if match[1] != "" {
			if errTS := outEvent.ApplyTimestamp(match[1]); errTS != nil {
				slog.Error("Failed to parse log timestamp", slog.String("error", errTS.Error()))
			}
		}

		switch outEvent.Type { //nolint:exhaustive
		case Connect:
			outEvent.Data = ConnectEvent{Player: parsePlayer(match[2:6]), Address: match[6]}
		case Disconnect:
			outEvent.Data = DisconnectEvent{Player: parsePlayer(match[2:6]), Reason: match[6]}
		case TeamChange:
			outEvent.Data = TeamChangeEvent{
				Player: parsePlayer([]string{match[2], match[3], match[4], match[6]}),
				From:   cs.ParseTeam(match[5]),
				To:     cs.ParseTeam(match[6]),
			}
		case RoundStart:
			outEvent.Data = RoundStartEvent{}
		case RoundEnd:
			outEvent.Data = RoundEndEvent{}
		case RoundWin:
			outEvent.Data = RoundWinEvent{
				Winner:   cs.ParseTeam(match[2]),
				Notice:   match[3],
				CTRounds: parseInt(match[4], 0),
				TRounds:  parseInt(match[5], 0),
			}
		case Kill:
			outEvent.Data = KillEvent{
				Killer:   parsePlayer(match[2:6]),
				Victim:   parsePlayer(match[6:10]),
				Weapon:   match[10],
				Headshot: strings.Contains(match[11], "(headshot)"),
			}
		case Assist:
			outEvent.Data = AssistEvent{Assister: parsePlayer(match[2:6]), Victim: parsePlayer(match[6:10])}
		case Damage:
			outEvent.Data = DamageEvent{
				Attacker: parsePlayer(match[2:6]),
				Victim:   parsePlayer(match[6:10]),
				Weapon:   match[10],
				Damage:   parseInt(match[11], 0),
			}
		case BombPlanted:
			outEvent.Data = BombPlantedEvent{Player: parsePlayer(match[2:6])}
		case BombDefused:
			outEvent.Data = BombDefusedEvent{Player: parsePlayer(match[2:6])}
		case HostageRescued:
			outEvent.Data = HostageRescuedEvent{Player: parsePlayer(match[2:6])}
		case RoundMVP:
			outEvent.Data = RoundMVPEvent{Player: parsePlayer(match[2:6])}
		case MapChange:
			outEvent.Data = MapChangeEvent{MapName: match[2]}
		}

		return nil
	}

	return ErrNoMatch
}

// parsePlayer decodes the 4 captured pieces of a player token: name, userid,
// steamid and team name. Bots and the server console use pseudo ids.
func parsePlayer(pieces []string) PlayerRef {
	ref := PlayerRef{
		Name:   pieces[0],
		UserID: parseInt(pieces[1], -1),
		Team:   cs.ParseTeam(pieces[3]),
	}

	switch pieces[2] {
	case "BOT", "Console", "":
		ref.Bot = true
	default:
		ref.SteamID = steamid.New(pieces[2])
	}

	return ref
}

func parseInt(s string, def int) int {
	value, errParse := strconv.ParseInt(s, 10, 32)
	if errParse != nil {
		return def
	}

	return int(value)
}
