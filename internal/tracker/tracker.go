// Package tracker maintains the live view of a single game server: who is
// playing, their stats, the current round and score, and whether the server
// is hibernating. All state is fed from the parsed log event stream plus
// periodic rcon pull queries.
package tracker

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leighmacdonald/slottrack/internal/config"
	"github.com/leighmacdonald/slottrack/internal/cs"
	"github.com/leighmacdonald/slottrack/internal/cs/events"
)

const eventQueueSize = 512

// Querier is the pull side of the tracker, answered over rcon in production.
type Querier interface {
	Status(ctx context.Context) (cs.ServerStatus, error)
	CVar(ctx context.Context, name string) (string, error)
	RoundSeconds(ctx context.Context, previous int) int
}

// Syncer accepts delivery requests. The build function is retained and called
// once per delivery attempt so every attempt carries the latest state.
type Syncer interface {
	Request(build func() Snapshot, force bool)
}

func New(conf config.Config, querier Querier, syncer Syncer) *Tracker {
	return &Tracker{
		mu:            &sync.RWMutex{},
		conf:          conf,
		querier:       querier,
		syncer:        syncer,
		sessionID:     uuid.New().String(),
		serverName:    conf.ServerName,
		slots:         cs.DefaultSlots,
		roundDuration: conf.RoundDurationSeconds,
		events:        make(chan events.Event, eventQueueSize),
	}
}

// Tracker owns all per-server match state behind a single lock. Events and
// tickers are consumed by one goroutine (Start), snapshot reads may happen
// from any goroutine.
type Tracker struct {
	mu      *sync.RWMutex
	conf    config.Config
	querier Querier
	syncer  Syncer

	// sessionID identifies this process lifetime to the collector.
	sessionID string

	clock       serverClock
	roster      Roster
	stats       StatCache
	round       Round
	score       Scoreboard
	hibernation Hibernation

	mapName       string
	serverName    string
	slots         int
	password      string
	liveCount     int
	roundDuration int
	// The first map event after startup describes the map we joined, not a
	// map change, so it must not reset anything.
	initialMapSeen bool

	events chan events.Event
}

// Subscribe registers the tracker for the full event stream.
func (t *Tracker) Subscribe(router *events.Router) {
	router.ListenFor(events.Any, t.events)
}

func (t *Tracker) SessionID() string {
	return t.sessionID
}

// Start runs the tracker loop until the context is cancelled. Must only be
// called once.
func (t *Tracker) Start(ctx context.Context) {
	roundTicker := time.NewTicker(time.Second)
	defer roundTicker.Stop()

	statusTicker := time.NewTicker(t.conf.StatusInterval())
	defer statusTicker.Stop()

	syncTicker := time.NewTicker(t.conf.SyncInterval())
	defer syncTicker.Stop()

	// Prime server details before the first tick so early snapshots are not
	// empty.
	t.onStatusTick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-t.events:
			t.onEvent(ctx, event)
		case <-roundTicker.C:
			t.onRoundTick()
		case <-statusTicker.C:
			t.onStatusTick(ctx)
		case <-syncTicker.C:
			t.requestSync(true)
		}
	}
}

// onEvent dispatches a single parsed event. A panic in any handler is
// contained here so one malformed line cannot take down the agent.
func (t *Tracker) onEvent(ctx context.Context, event events.Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			slog.Error("Recovered from event handler panic",
				slog.Any("panic", recovered),
				slog.String("raw", event.Raw),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.clock.Observe(event.Timestamp)

	switch data := event.Data.(type) {
	case events.ConnectEvent:
		t.onConnect(data)
	case events.DisconnectEvent:
		t.onDisconnect(data)
	case events.TeamChangeEvent:
		t.onTeamChange(data)
	case events.RoundStartEvent:
		t.onRoundStart(ctx)
	case events.RoundEndEvent:
		t.onRoundEnd()
	case events.RoundWinEvent:
		t.onRoundWin(data)
	case events.KillEvent:
		t.onKill(data)
	case events.AssistEvent:
		t.onAssist(data)
	case events.BombPlantedEvent:
		t.onObjective(data.Player, scorePlant)
	case events.BombDefusedEvent:
		t.onObjective(data.Player, scoreDefuse)
	case events.HostageRescuedEvent:
		t.onObjective(data.Player, scoreRescue)
	case events.RoundMVPEvent:
		t.onMVP(data)
	case events.MapChangeEvent:
		t.onMapChange(data)
	}
}

func (t *Tracker) onConnect(data events.ConnectEvent) {
	if !data.Player.Valid() {
		return
	}

	// Roster membership starts at the first team join, not here.
	slog.Debug("Player connected",
		slog.String("name", data.Player.Name),
		slog.String("steam_id", data.Player.SteamID.String()))
}

func (t *Tracker) onDisconnect(data events.DisconnectEvent) {
	if !data.Player.Valid() {
		return
	}

	t.roster.Remove(data.Player.SteamID)
	t.stats.Remove(data.Player.SteamID)

	slog.Debug("Player disconnected",
		slog.String("name", data.Player.Name),
		slog.String("reason", data.Reason))

	t.requestSync(false)
}

func (t *Tracker) onTeamChange(data events.TeamChangeEvent) {
	if !data.Player.Valid() {
		return
	}

	t.roster.Upsert(Player{
		SteamID: data.Player.SteamID,
		Name:    data.Player.Name,
		Team:    data.To,
	})

	slog.Debug("Player switched team",
		slog.String("name", data.Player.Name),
		slog.String("from", data.From.String()),
		slog.String("to", data.To.String()))

	t.requestSync(false)
}

func (t *Tracker) onRoundStart(ctx context.Context) {
	// Warmup loops on an empty server restart rounds endlessly, a sleeping
	// server must not report a round in progress.
	if t.hibernation.Idle() {
		return
	}

	t.roundDuration = t.querier.RoundSeconds(ctx, t.roundDuration)
	t.round.Start(t.clock.Now(), t.roundDuration)

	t.requestSync(false)
}

func (t *Tracker) onRoundEnd() {
	t.round.End()

	t.requestSync(false)
}

func (t *Tracker) onRoundWin(data events.RoundWinEvent) {
	// Round wins with nobody connected come from warmup loops on an empty
	// server. They flag a missed hibernation transition and must not count.
	if t.liveCount == 0 {
		if t.hibernation.Force(t.clock.Now()) {
			slog.Warn("Ghost round win observed, forcing hibernation",
				slog.String("notice", data.Notice))
			t.enterIdleState()
			t.requestSync(true)
		}

		return
	}

	t.round.End()

	if t.score.Record(data.Winner, data.CTRounds, data.TRounds) {
		slog.Info("Half-time reached, swapping team scores")
	}

	t.requestSync(false)
}

func (t *Tracker) onKill(data events.KillEvent) {
	suicide := data.Killer.SteamID.Equal(data.Victim.SteamID)
	if data.Killer.Valid() && !suicide {
		t.stats.AddKill(data.Killer.SteamID, data.Headshot)
	}

	if data.Victim.Valid() {
		t.stats.AddDeath(data.Victim.SteamID)
	}

	t.requestSync(false)
}

func (t *Tracker) onAssist(data events.AssistEvent) {
	if !data.Assister.Valid() {
		return
	}

	t.stats.AddAssist(data.Assister.SteamID)

	t.requestSync(false)
}

func (t *Tracker) onObjective(player events.PlayerRef, points int) {
	if !player.Valid() {
		return
	}

	t.stats.AddScore(player.SteamID, points)

	t.requestSync(false)
}

func (t *Tracker) onMVP(data events.RoundMVPEvent) {
	if !data.Player.Valid() {
		return
	}

	t.stats.AddMVP(data.Player.SteamID)

	t.requestSync(false)
}

func (t *Tracker) onMapChange(data events.MapChangeEvent) {
	previous := t.mapName
	t.mapName = data.MapName

	// Startup announces the current map once. Only subsequent changes are
	// real transitions that reset match state.
	if !t.initialMapSeen {
		t.initialMapSeen = true

		return
	}

	slog.Info("Map changed, resetting match state",
		slog.String("previous", previous),
		slog.String("current", data.MapName))

	t.stats.Clear()
	t.score.Reset()
	t.round.Reset()

	t.requestSync(true)
}

// enterIdleState wipes all match state when the server goes to sleep. Rounds
// won before everyone left must not survive into the next session, a sleeping
// server reports an empty scoreboard.
func (t *Tracker) enterIdleState() {
	t.roster.SetFrozen(true)
	t.round.Reset()
	t.score.Reset()
	t.stats.Clear()
}

// leaveIdleState thaws the roster and drops any counters that leaked in while
// asleep, so waking up looks like a fresh process start.
func (t *Tracker) leaveIdleState() {
	t.roster.SetFrozen(false)
	t.score.Reset()
	t.stats.Clear()
}

func (t *Tracker) onRoundTick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.round.Tick(t.clock.Now()) {
		slog.Debug("Round clock expired without an end event")
		t.requestSync(false)
	}
}

// onStatusTick runs the consolidated pull cycle: server details, live player
// count, hibernation classification and the stat refresh.
func (t *Tracker) onStatusTick(ctx context.Context) {
	status, errStatus := t.querier.Status(ctx)
	if errStatus != nil {
		slog.Warn("Status query failed", slog.String("error", errStatus.Error()))

		return
	}

	password := t.conf.ServerPassword
	if password == "" {
		if value, errCVar := t.querier.CVar(ctx, cs.CVarPassword); errCVar == nil {
			password = value
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conf.ServerName == "" && status.Hostname != "" {
		t.serverName = status.Hostname
	}
	if status.SlotsMax > 0 {
		t.slots = status.SlotsMax
	}
	if t.mapName == "" && status.Map != "" {
		t.mapName = status.Map
	}
	if password != "" {
		t.password = password
	}

	t.liveCount = status.Humans

	switch t.hibernation.Observe(status.Humans, t.clock.Now()) {
	case HibernationEntered:
		slog.Info("Server entered hibernation",
			slog.Int("count", t.hibernation.Count()))
		t.enterIdleState()
		t.requestSync(true)

		return
	case HibernationLeft:
		slog.Info("Server left hibernation")
		t.leaveIdleState()
		t.requestSync(true)
	case HibernationUnchanged:
	}

	samples := make([]StatSample, 0, len(status.Players))
	for _, player := range status.Players {
		if player.Bot || !player.Connected {
			continue
		}

		samples = append(samples, StatSample{
			SteamID: player.SteamID,
			Name:    player.Name,
			Ping:    Known(player.Ping),
		})
	}

	if t.stats.ApplyAll(samples) {
		t.requestSync(false)
	}
}

// BuildSnapshot assembles a self-contained wire snapshot of the current state.
// Safe to call from any goroutine.
func (t *Tracker) BuildSnapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tRounds, ctRounds := t.score.Rounds()
	tPlayers, ctPlayers := t.roster.TeamCounts()

	snapshot := Snapshot{
		ServerID:           t.conf.ServerID,
		ServerName:         t.serverName,
		ServerIP:           t.conf.ServerIP,
		ServerPort:         t.conf.ServerPort,
		ServerPassword:     t.password,
		SessionID:          t.sessionID,
		Timestamp:          wireTime(t.clock.Now()),
		MapName:            t.mapName,
		PlayerCount:        t.liveCount,
		ServerSlots:        t.slots,
		TRounds:            tRounds,
		CTRounds:           ctRounds,
		TPlayers:           tPlayers,
		CTPlayers:          ctPlayers,
		RoundInProgress:    t.round.InProgress(),
		RoundTimeRemaining: t.round.Remaining(),
		RoundStartTime:     wireTime(t.round.StartedAt()),
		IsHibernating:      t.hibernation.Idle(),
		HibernationCount:   t.hibernation.Count(),
		Players:            make([]PlayerSnapshot, 0, t.roster.Count()),
	}

	if t.hibernation.Idle() {
		snapshot.HibernationStartTime = wireTime(t.hibernation.Since())
	}

	for _, player := range t.roster.All() {
		block := t.stats.Block(player.SteamID)
		snapshot.Players = append(snapshot.Players, PlayerSnapshot{
			Name:          player.Name,
			SteamID:       player.SteamID.String(),
			Team:          player.Team.String(),
			Kills:         block.Kills,
			Deaths:        block.Deaths,
			Assists:       block.Assists,
			Score:         block.Score,
			HeadshotKills: block.HeadshotKills,
			MVPs:          block.MVPs,
			Ping:          block.Ping,
		})
	}

	return snapshot
}

// requestSync hands a delivery request to the sync engine. Never blocks, the
// engine debounces and drops as needed.
func (t *Tracker) requestSync(force bool) {
	if t.syncer == nil {
		return
	}

	t.syncer.Request(t.BuildSnapshot, force)
}
