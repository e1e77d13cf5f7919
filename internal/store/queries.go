package store

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type PlayerSession struct {
	PlayerSessionID  int64
	SessionID        string
	SteamID          int64
	Name             string
	MapName          string
	ConnectedAt      int64
	DisconnectedAt   sql.NullInt64
	DisconnectReason string
}

type TeamSwitch struct {
	TeamSwitchID int64
	SessionID    string
	SteamID      int64
	Name         string
	FromTeam     string
	ToTeam       string
	SwitchedAt   int64
}

const insertPlayerSession = `
INSERT INTO player_session (session_id, steam_id, name, map_name, connected_at)
VALUES (?, ?, ?, ?, ?)
RETURNING player_session_id
`

type InsertPlayerSessionParams struct {
	SessionID   string
	SteamID     int64
	Name        string
	MapName     string
	ConnectedAt int64
}

func (q *Queries) InsertPlayerSession(ctx context.Context, arg InsertPlayerSessionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertPlayerSession,
		arg.SessionID,
		arg.SteamID,
		arg.Name,
		arg.MapName,
		arg.ConnectedAt,
	)

	var playerSessionID int64
	err := row.Scan(&playerSessionID)

	return playerSessionID, err
}

const closePlayerSession = `
UPDATE player_session
SET disconnected_at = ?, disconnect_reason = ?
WHERE player_session_id = ?
`

type ClosePlayerSessionParams struct {
	DisconnectedAt   int64
	DisconnectReason string
	PlayerSessionID  int64
}

func (q *Queries) ClosePlayerSession(ctx context.Context, arg ClosePlayerSessionParams) error {
	_, err := q.db.ExecContext(ctx, closePlayerSession,
		arg.DisconnectedAt,
		arg.DisconnectReason,
		arg.PlayerSessionID,
	)

	return err
}

const insertTeamSwitch = `
INSERT INTO team_switch (session_id, steam_id, name, from_team, to_team, switched_at)
VALUES (?, ?, ?, ?, ?, ?)
`

type InsertTeamSwitchParams struct {
	SessionID  string
	SteamID    int64
	Name       string
	FromTeam   string
	ToTeam     string
	SwitchedAt int64
}

func (q *Queries) InsertTeamSwitch(ctx context.Context, arg InsertTeamSwitchParams) error {
	_, err := q.db.ExecContext(ctx, insertTeamSwitch,
		arg.SessionID,
		arg.SteamID,
		arg.Name,
		arg.FromTeam,
		arg.ToTeam,
		arg.SwitchedAt,
	)

	return err
}

const playerSessions = `
SELECT player_session_id, session_id, steam_id, name, map_name, connected_at, disconnected_at, disconnect_reason
FROM player_session
WHERE steam_id = ?
ORDER BY connected_at DESC
LIMIT ?
`

type PlayerSessionsParams struct {
	SteamID int64
	Limit   int64
}

func (q *Queries) PlayerSessions(ctx context.Context, arg PlayerSessionsParams) ([]PlayerSession, error) {
	rows, err := q.db.QueryContext(ctx, playerSessions, arg.SteamID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PlayerSession
	for rows.Next() {
		var item PlayerSession
		if err := rows.Scan(
			&item.PlayerSessionID,
			&item.SessionID,
			&item.SteamID,
			&item.Name,
			&item.MapName,
			&item.ConnectedAt,
			&item.DisconnectedAt,
			&item.DisconnectReason,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
