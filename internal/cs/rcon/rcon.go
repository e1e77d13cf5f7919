// Package rcon wraps the source engine remote console protocol used for all
// pull queries against the game server.
package rcon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leighmacdonald/rcon/rcon"
)

var ErrRCON = errors.New("error making rcon request")

type Connection struct {
	addr     string
	password string
	timeout  time.Duration
}

func New(addr string, password string) Connection {
	return Connection{
		addr:     addr,
		password: password,
		timeout:  time.Second,
	}
}

// Exec runs a single command, dialing a fresh connection each call. Set large
// for commands whose responses span multiple rcon packets.
func (r Connection) Exec(ctx context.Context, cmd string, large bool) (string, error) {
	conn, errConn := rcon.Dial(ctx, r.addr, r.password, r.timeout)
	if errConn != nil {
		return "", errors.Join(errConn, fmt.Errorf("%w: %s", ErrRCON, r.addr))
	}
	defer conn.Close()

	if large {
		return r.execLarge(conn, cmd)
	}

	return r.exec(conn, cmd)
}

func (r Connection) exec(conn *rcon.RemoteConsole, cmd string) (string, error) {
	cmdID, errWrite := conn.Write(cmd)
	if errWrite != nil {
		return "", errors.Join(errWrite, ErrRCON)
	}

	resp, respID, errRead := conn.Read()
	if errRead != nil {
		return "", errors.Join(errRead, ErrRCON)
	}

	if respID != cmdID {
		slog.Warn("Mismatched command response ID", slog.Int("req", cmdID), slog.Int("resp", respID))
	}

	return resp, nil
}

// execLarge reads until a packet arrives that is smaller than the maximum
// payload, which marks the end of a multi packet response (status on a full
// server).
func (r Connection) execLarge(conn *rcon.RemoteConsole, cmd string) (string, error) {
	cmdID, errWrite := conn.Write(cmd)
	if errWrite != nil {
		return "", errors.Join(errWrite, ErrRCON)
	}

	var response string

	for {
		resp, respID, errRead := conn.Read()
		if errRead != nil {
			return "", errors.Join(errRead, ErrRCON)
		}

		if respID == cmdID {
			response += resp

			if len(resp) < 4000 {
				break
			}
		}
	}

	return response, nil
}
