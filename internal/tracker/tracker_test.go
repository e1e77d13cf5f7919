package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/stretchr/testify/require"

	"github.com/leighmacdonald/slottrack/internal/config"
	"github.com/leighmacdonald/slottrack/internal/cs"
	"github.com/leighmacdonald/slottrack/internal/cs/events"
)

type fakeQuerier struct {
	status       cs.ServerStatus
	statusErr    error
	cvars        map[string]string
	roundSeconds int
}

func (f *fakeQuerier) Status(_ context.Context) (cs.ServerStatus, error) {
	return f.status, f.statusErr
}

func (f *fakeQuerier) CVar(_ context.Context, name string) (string, error) {
	value, found := f.cvars[name]
	if !found {
		return "", cs.ErrCVarNotFound
	}

	return value, nil
}

func (f *fakeQuerier) RoundSeconds(_ context.Context, previous int) int {
	if f.roundSeconds > 0 {
		return f.roundSeconds
	}

	return previous
}

type recordingSyncer struct {
	forced  int
	regular int
}

func (r *recordingSyncer) Request(_ func() Snapshot, force bool) {
	if force {
		r.forced++
	} else {
		r.regular++
	}
}

func testConfig() config.Config {
	return config.Config{
		ServerID:              "srv-1",
		ServerIP:              "198.51.100.7",
		ServerPort:            27015,
		SyncIntervalSeconds:   60,
		StatusIntervalSeconds: 5,
		RoundDurationSeconds:  115,
	}
}

func playerRef(name string, userID int, sid string, team cs.Team) events.PlayerRef {
	return events.PlayerRef{Name: name, UserID: userID, SteamID: steamid.New(sid), Team: team}
}

func TestTrackerMatchFlow(t *testing.T) {
	ctx := context.Background()
	querier := &fakeQuerier{roundSeconds: 115}
	syncer := &recordingSyncer{}
	tracked := New(testConfig(), querier, syncer)

	alyx := playerRef("Alyx", 2, "[U:1:111111]", cs.CT)
	barney := playerRef("Barney", 3, "[U:1:222222]", cs.T)

	tracked.onEvent(ctx, events.Event{Data: events.TeamChangeEvent{Player: alyx, From: cs.Unassigned, To: cs.CT}})
	tracked.onEvent(ctx, events.Event{Data: events.TeamChangeEvent{Player: barney, From: cs.Unassigned, To: cs.T}})

	// Pretend the status poll saw both players so liveCount is current.
	querier.status = cs.ServerStatus{
		Hostname: "Test Server",
		Map:      "de_inferno",
		SlotsMax: 16,
		Players: []cs.StatusPlayer{
			{Name: "Alyx", SteamID: alyx.SteamID, Ping: 25, Connected: true},
			{Name: "Barney", SteamID: barney.SteamID, Ping: 40, Connected: true},
		},
	}
	querier.status.Humans = 2
	tracked.onStatusTick(ctx)

	tracked.onEvent(ctx, events.Event{Data: events.RoundStartEvent{}})
	tracked.onEvent(ctx, events.Event{Data: events.KillEvent{Killer: alyx, Victim: barney, Weapon: "ak47", Headshot: true}})
	tracked.onEvent(ctx, events.Event{Data: events.RoundMVPEvent{Player: alyx}})
	tracked.onEvent(ctx, events.Event{Data: events.RoundWinEvent{Winner: cs.CT, Notice: "SFUI_Notice_CTs_Win", CTRounds: 1, TRounds: 0}})

	snapshot := tracked.BuildSnapshot()
	require.Equal(t, "srv-1", snapshot.ServerID)
	require.Equal(t, "Test Server", snapshot.ServerName)
	require.Equal(t, "de_inferno", snapshot.MapName)
	require.Equal(t, 16, snapshot.ServerSlots)
	require.Equal(t, 2, snapshot.PlayerCount)
	require.Equal(t, 1, snapshot.CTRounds)
	require.Equal(t, 0, snapshot.TRounds)
	require.Equal(t, 1, snapshot.TPlayers)
	require.Equal(t, 1, snapshot.CTPlayers)
	require.False(t, snapshot.RoundInProgress)
	require.False(t, snapshot.IsHibernating)
	require.Len(t, snapshot.Players, 2)

	// T side first in the player list.
	require.Equal(t, "Barney", snapshot.Players[0].Name)
	require.Equal(t, 1, snapshot.Players[0].Deaths)
	require.Equal(t, 40, snapshot.Players[0].Ping)
	require.Equal(t, "Alyx", snapshot.Players[1].Name)
	require.Equal(t, 1, snapshot.Players[1].Kills)
	require.Equal(t, 1, snapshot.Players[1].HeadshotKills)
	require.Equal(t, 1, snapshot.Players[1].MVPs)

	require.NotEmpty(t, snapshot.SessionID)
	require.NotEmpty(t, snapshot.Timestamp)
	require.Positive(t, syncer.regular)
}

func TestTrackerRoundStartReadsDuration(t *testing.T) {
	ctx := context.Background()
	querier := &fakeQuerier{roundSeconds: 135}
	tracked := New(testConfig(), querier, nil)

	tracked.onEvent(ctx, events.Event{Data: events.RoundStartEvent{}})

	snapshot := tracked.BuildSnapshot()
	require.True(t, snapshot.RoundInProgress)
	require.Equal(t, 135, snapshot.RoundTimeRemaining)
	require.NotEmpty(t, snapshot.RoundStartTime)
}

func TestTrackerHibernationFromStatus(t *testing.T) {
	ctx := context.Background()
	querier := &fakeQuerier{}
	syncer := &recordingSyncer{}
	tracked := New(testConfig(), querier, syncer)

	alyx := playerRef("Alyx", 2, "[U:1:111111]", cs.CT)
	tracked.onEvent(ctx, events.Event{Data: events.TeamChangeEvent{Player: alyx, From: cs.Unassigned, To: cs.CT}})

	querier.status = cs.ServerStatus{Humans: 1, Players: []cs.StatusPlayer{
		{Name: "Alyx", SteamID: alyx.SteamID, Ping: 30, Connected: true},
	}}
	tracked.onStatusTick(ctx)
	require.False(t, tracked.BuildSnapshot().IsHibernating)

	// Everyone left, the zero-crossing puts the server to sleep.
	querier.status = cs.ServerStatus{Humans: 0}
	tracked.onStatusTick(ctx)

	snapshot := tracked.BuildSnapshot()
	require.True(t, snapshot.IsHibernating)
	require.Equal(t, 1, snapshot.HibernationCount)
	require.NotEmpty(t, snapshot.HibernationStartTime)
	require.Empty(t, snapshot.Players)

	// A late team change while asleep must not repopulate the roster.
	tracked.onEvent(ctx, events.Event{Data: events.TeamChangeEvent{Player: alyx, From: cs.Unassigned, To: cs.CT}})
	require.Empty(t, tracked.BuildSnapshot().Players)

	querier.status = cs.ServerStatus{Humans: 1, Players: []cs.StatusPlayer{
		{Name: "Alyx", SteamID: alyx.SteamID, Ping: 30, Connected: true},
	}}
	tracked.onStatusTick(ctx)
	require.False(t, tracked.BuildSnapshot().IsHibernating)
}

func TestTrackerHibernationClearsScore(t *testing.T) {
	ctx := context.Background()
	querier := &fakeQuerier{}
	tracked := New(testConfig(), querier, nil)

	alyx := playerRef("Alyx", 2, "[U:1:111111]", cs.CT)
	barney := playerRef("Barney", 3, "[U:1:222222]", cs.T)
	tracked.onEvent(ctx, events.Event{Data: events.TeamChangeEvent{Player: alyx, From: cs.Unassigned, To: cs.CT}})

	querier.status = cs.ServerStatus{Humans: 1, Players: []cs.StatusPlayer{
		{Name: "Alyx", SteamID: alyx.SteamID, Ping: 30, Connected: true},
	}}
	tracked.onStatusTick(ctx)

	tracked.onEvent(ctx, events.Event{Data: events.KillEvent{Killer: alyx, Victim: barney, Weapon: "ak47"}})
	tracked.onEvent(ctx, events.Event{Data: events.RoundWinEvent{Winner: cs.T, Notice: "SFUI_Notice_Terrorists_Win", CTRounds: 0, TRounds: 1}})
	require.Equal(t, 1, tracked.BuildSnapshot().TRounds)

	// The last player leaves. The sleeping snapshot must show an empty
	// scoreboard, rounds won earlier belong to the finished session.
	querier.status = cs.ServerStatus{Humans: 0}
	tracked.onStatusTick(ctx)

	snapshot := tracked.BuildSnapshot()
	require.True(t, snapshot.IsHibernating)
	require.Equal(t, 1, snapshot.HibernationCount)
	require.Equal(t, 0, snapshot.TRounds)
	require.Equal(t, 0, snapshot.CTRounds)
	require.Empty(t, snapshot.Players)
	require.Equal(t, StatBlock{}, tracked.stats.Block(alyx.SteamID))
}

func TestTrackerWakeDropsStaleStats(t *testing.T) {
	ctx := context.Background()
	querier := &fakeQuerier{}
	tracked := New(testConfig(), querier, nil)

	alyx := playerRef("Alyx", 2, "[U:1:111111]", cs.CT)
	barney := playerRef("Barney", 3, "[U:1:222222]", cs.T)
	tracked.onEvent(ctx, events.Event{Data: events.TeamChangeEvent{Player: alyx, From: cs.Unassigned, To: cs.CT}})

	querier.status = cs.ServerStatus{Humans: 2, Players: []cs.StatusPlayer{
		{Name: "Alyx", SteamID: alyx.SteamID, Ping: 30, Connected: true},
		{Name: "Barney", SteamID: barney.SteamID, Ping: 40, Connected: true},
	}}
	tracked.onStatusTick(ctx)
	tracked.onEvent(ctx, events.Event{Data: events.KillEvent{Killer: alyx, Victim: barney, Weapon: "ak47"}})

	// Alyx's disconnect event is lost, only the empty poll notices the exit.
	querier.status = cs.ServerStatus{Humans: 0}
	tracked.onStatusTick(ctx)

	querier.status = cs.ServerStatus{Humans: 1, Players: []cs.StatusPlayer{
		{Name: "Alyx", SteamID: alyx.SteamID, Ping: 30, Connected: true},
	}}
	tracked.onStatusTick(ctx)
	tracked.onEvent(ctx, events.Event{Data: events.TeamChangeEvent{Player: alyx, From: cs.Unassigned, To: cs.CT}})

	// The new session starts with clean counters despite the missed
	// disconnect.
	snapshot := tracked.BuildSnapshot()
	require.False(t, snapshot.IsHibernating)
	require.Len(t, snapshot.Players, 1)
	require.Equal(t, 0, snapshot.Players[0].Kills)
	require.Equal(t, 0, snapshot.TRounds)
}

func TestTrackerNoRoundWhileHibernating(t *testing.T) {
	ctx := context.Background()
	querier := &fakeQuerier{roundSeconds: 115}
	tracked := New(testConfig(), querier, nil)

	alyx := playerRef("Alyx", 2, "[U:1:111111]", cs.CT)
	querier.status = cs.ServerStatus{Humans: 1, Players: []cs.StatusPlayer{
		{Name: "Alyx", SteamID: alyx.SteamID, Ping: 30, Connected: true},
	}}
	tracked.onStatusTick(ctx)
	querier.status = cs.ServerStatus{Humans: 0}
	tracked.onStatusTick(ctx)

	// Warmup restarts keep firing on the empty server.
	tracked.onEvent(ctx, events.Event{Data: events.RoundStartEvent{}})

	snapshot := tracked.BuildSnapshot()
	require.True(t, snapshot.IsHibernating)
	require.False(t, snapshot.RoundInProgress)
	require.Equal(t, 0, snapshot.RoundTimeRemaining)
}

func TestTrackerGhostScoreGuard(t *testing.T) {
	ctx := context.Background()
	querier := &fakeQuerier{}
	syncer := &recordingSyncer{}
	tracked := New(testConfig(), querier, syncer)

	// No status poll has seen a human. A round win here is a warmup loop on
	// an empty server, not a real round.
	tracked.onEvent(ctx, events.Event{Data: events.RoundWinEvent{Winner: cs.T, Notice: "SFUI_Notice_Terrorists_Win", CTRounds: 0, TRounds: 1}})

	snapshot := tracked.BuildSnapshot()
	require.True(t, snapshot.IsHibernating)
	require.Equal(t, 0, snapshot.TRounds)
	require.Equal(t, 0, snapshot.CTRounds)
	require.Positive(t, syncer.forced)
}

func TestTrackerMapChangeReset(t *testing.T) {
	ctx := context.Background()
	querier := &fakeQuerier{}
	tracked := New(testConfig(), querier, nil)

	alyx := playerRef("Alyx", 2, "[U:1:111111]", cs.CT)
	tracked.onEvent(ctx, events.Event{Data: events.TeamChangeEvent{Player: alyx, From: cs.Unassigned, To: cs.CT}})
	tracked.liveCount = 1
	tracked.onEvent(ctx, events.Event{Data: events.KillEvent{Killer: alyx, Victim: playerRef("Barney", 3, "[U:1:222222]", cs.T), Weapon: "ak47"}})
	tracked.onEvent(ctx, events.Event{Data: events.RoundWinEvent{Winner: cs.CT, Notice: "SFUI_Notice_CTs_Win", CTRounds: 1, TRounds: 0}})

	// The first map event is the initial load, nothing resets.
	tracked.onEvent(ctx, events.Event{Data: events.MapChangeEvent{MapName: "de_dust2"}})
	snapshot := tracked.BuildSnapshot()
	require.Equal(t, "de_dust2", snapshot.MapName)
	require.Equal(t, 1, snapshot.CTRounds)
	require.Equal(t, 1, snapshot.Players[0].Kills)

	// A real map change wipes stats and scores but keeps the roster.
	tracked.onEvent(ctx, events.Event{Data: events.MapChangeEvent{MapName: "de_nuke"}})
	snapshot = tracked.BuildSnapshot()
	require.Equal(t, "de_nuke", snapshot.MapName)
	require.Equal(t, 0, snapshot.CTRounds)
	require.Len(t, snapshot.Players, 1)
	require.Equal(t, 0, snapshot.Players[0].Kills)
}

func TestTrackerStatusErrorKeepsState(t *testing.T) {
	ctx := context.Background()
	querier := &fakeQuerier{}
	tracked := New(testConfig(), querier, nil)

	querier.status = cs.ServerStatus{Hostname: "Test Server", Humans: 1, SlotsMax: 12}
	tracked.onStatusTick(ctx)

	querier.statusErr = errors.New("connection refused")
	tracked.onStatusTick(ctx)

	snapshot := tracked.BuildSnapshot()
	require.Equal(t, "Test Server", snapshot.ServerName)
	require.Equal(t, 12, snapshot.ServerSlots)
	require.False(t, snapshot.IsHibernating)
}

func TestTrackerIgnoresBots(t *testing.T) {
	ctx := context.Background()
	tracked := New(testConfig(), &fakeQuerier{}, nil)

	bot := events.PlayerRef{Name: "Chet", UserID: 4, Team: cs.T, Bot: true}
	tracked.onEvent(ctx, events.Event{Data: events.TeamChangeEvent{Player: bot, From: cs.Unassigned, To: cs.T}})
	tracked.onEvent(ctx, events.Event{Data: events.KillEvent{Killer: bot, Victim: bot, Weapon: "knife"}})

	require.Empty(t, tracked.BuildSnapshot().Players)
}
