package tracker

import (
	"time"
)

// wireTimeFormat matches what the collector expects, UTC without a zone.
const wireTimeFormat = "2006-01-02 15:04:05"

// PlayerSnapshot is the wire form of one tracked player.
type PlayerSnapshot struct {
	Name          string `json:"name"`
	SteamID       string `json:"steam_id"`
	Team          string `json:"team"`
	Kills         int    `json:"kills"`
	Deaths        int    `json:"deaths"`
	Assists       int    `json:"assists"`
	Score         int    `json:"score"`
	HeadshotKills int    `json:"headshot_kills"`
	MVPs          int    `json:"mvps"`
	Ping          int    `json:"ping"`
}

// Snapshot is a self-contained, point-in-time serialization of all tracked
// match state. It is built fresh from live state for every delivery attempt
// and has no lifecycle beyond that.
type Snapshot struct {
	ServerID             string           `json:"server_id"`
	ServerName           string           `json:"server_name"`
	ServerIP             string           `json:"server_ip"`
	ServerPort           int              `json:"server_port"`
	ServerPassword       string           `json:"server_password"`
	SessionID            string           `json:"session_id"`
	Timestamp            string           `json:"timestamp"`
	MapName              string           `json:"map_name"`
	PlayerCount          int              `json:"player_count"`
	ServerSlots          int              `json:"server_slots"`
	TRounds              int              `json:"t_rounds"`
	CTRounds             int              `json:"ct_rounds"`
	TPlayers             int              `json:"t_players"`
	CTPlayers            int              `json:"ct_players"`
	RoundInProgress      bool             `json:"round_in_progress"`
	RoundTimeRemaining   int              `json:"round_time_remaining"`
	RoundStartTime       string           `json:"round_start_time"`
	IsHibernating        bool             `json:"is_hibernating"`
	HibernationCount     int              `json:"hibernation_count"`
	HibernationStartTime string           `json:"hibernation_start_time,omitempty"`
	Players              []PlayerSnapshot `json:"players"`
}

func wireTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(wireTimeFormat)
}
