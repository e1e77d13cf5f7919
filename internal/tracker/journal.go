package tracker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/leighmacdonald/slottrack/internal/cs/events"
	"github.com/leighmacdonald/slottrack/internal/store"
)

var errJournal = errors.New("failed to save journal event")

// Journal records connection sessions and team switches for long term
// storage. It consumes its own copy of the event stream and never touches
// tracker state.
type Journal struct {
	db        *store.Queries
	sessionID string
	logEvents chan events.Event
	// open maps a connected player to their session row so the disconnect
	// can close it.
	open    map[steamid.SteamID]int64
	mapName string
}

func NewJournal(conn *store.Queries, sessionID string) *Journal {
	return &Journal{
		db:        conn,
		sessionID: sessionID,
		logEvents: make(chan events.Event, eventQueueSize),
		open:      map[steamid.SteamID]int64{},
	}
}

// Subscribe registers the journal for the event types it persists.
func (j *Journal) Subscribe(router *events.Router) {
	router.ListenFor(events.Connect, j.logEvents)
	router.ListenFor(events.Disconnect, j.logEvents)
	router.ListenFor(events.TeamChange, j.logEvents)
	router.ListenFor(events.MapChange, j.logEvents)
}

func (j *Journal) Start(ctx context.Context) {
	for {
		select {
		case event := <-j.logEvents:
			var err error
			switch data := event.Data.(type) {
			case events.ConnectEvent:
				err = j.onConnect(ctx, event.Timestamp, data)
			case events.DisconnectEvent:
				err = j.onDisconnect(ctx, event.Timestamp, data)
			case events.TeamChangeEvent:
				err = j.onTeamChange(ctx, event.Timestamp, data)
			case events.MapChangeEvent:
				j.mapName = data.MapName
			}

			if err != nil {
				slog.Error("Failed to handle journal event", slog.String("error", err.Error()))
			}
		case <-ctx.Done():
			return
		}
	}
}

func eventTime(timestamp time.Time) time.Time {
	if timestamp.IsZero() {
		return time.Now()
	}

	return timestamp
}

func (j *Journal) onConnect(ctx context.Context, timestamp time.Time, event events.ConnectEvent) error {
	if !event.Player.Valid() {
		return nil
	}

	rowID, err := j.db.InsertPlayerSession(ctx, store.InsertPlayerSessionParams{
		SessionID:   j.sessionID,
		SteamID:     event.Player.SteamID.Int64(),
		Name:        event.Player.Name,
		MapName:     j.mapName,
		ConnectedAt: eventTime(timestamp).Unix(),
	})
	if err != nil {
		return errors.Join(err, errJournal)
	}

	j.open[event.Player.SteamID] = rowID

	return nil
}

func (j *Journal) onDisconnect(ctx context.Context, timestamp time.Time, event events.DisconnectEvent) error {
	if !event.Player.Valid() {
		return nil
	}

	rowID, found := j.open[event.Player.SteamID]
	if !found {
		// Connected before we started listening, nothing to close.
		return nil
	}

	delete(j.open, event.Player.SteamID)

	if err := j.db.ClosePlayerSession(ctx, store.ClosePlayerSessionParams{
		DisconnectedAt:   eventTime(timestamp).Unix(),
		DisconnectReason: event.Reason,
		PlayerSessionID:  rowID,
	}); err != nil {
		return errors.Join(err, errJournal)
	}

	return nil
}

func (j *Journal) onTeamChange(ctx context.Context, timestamp time.Time, event events.TeamChangeEvent) error {
	if !event.Player.Valid() {
		return nil
	}

	if err := j.db.InsertTeamSwitch(ctx, store.InsertTeamSwitchParams{
		SessionID:  j.sessionID,
		SteamID:    event.Player.SteamID.Int64(),
		Name:       event.Player.Name,
		FromTeam:   event.From.String(),
		ToTeam:     event.To.String(),
		SwitchedAt: eventTime(timestamp).Unix(),
	}); err != nil {
		return errors.Join(err, errJournal)
	}

	return nil
}
