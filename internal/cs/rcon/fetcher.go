package rcon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/leighmacdonald/steamid/v4/extra"
	gocache "github.com/patrickmn/go-cache"
	"github.com/leighmacdonald/slottrack/internal/cs"
)

const (
	// cvar values rarely change mid match, no need to hammer the server.
	cvarCacheTTL     = time.Minute
	cvarCacheCleanup = time.Minute * 10
)

var ErrStatusQuery = errors.New("failed to perform status query")

func NewFetcher(address string, password string) *Fetcher {
	return &Fetcher{
		address:  address,
		password: password,
		mu:       &sync.Mutex{},
		cvars:    gocache.New(cvarCacheTTL, cvarCacheCleanup),
	}
}

// Fetcher performs the pull queries against the game server: the `status`
// roster and cvar reads. The last successful status is retained so that a
// transient rcon failure degrades to slightly stale data instead of an empty
// roster.
type Fetcher struct {
	address    string
	password   string
	mu         *sync.Mutex
	lastStatus cs.ServerStatus
	lastGood   bool
	cvars      *gocache.Cache
}

// Status queries and parses the current server status.
func (f *Fetcher) Status(ctx context.Context) (cs.ServerStatus, error) {
	response, errExec := New(f.address, f.password).Exec(ctx, "status", true)
	if errExec != nil {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.lastGood {
			return f.lastStatus, nil
		}

		return cs.ServerStatus{}, errors.Join(errExec, ErrStatusQuery)
	}

	parsed, errParse := extra.ParseStatus(response, true)
	if errParse != nil {
		return cs.ServerStatus{}, errors.Join(errParse, ErrStatusQuery)
	}

	status := cs.ServerStatus{
		Hostname: parsed.ServerName,
		Map:      parsed.Map,
		SlotsMax: parsed.PlayersMax,
	}

	for _, player := range parsed.Players {
		row := cs.StatusPlayer{
			Name:      player.Name,
			SteamID:   player.SID,
			UserID:    player.UserID,
			Ping:      player.Ping,
			Loss:      player.Loss,
			Connected: player.State == "active",
			Bot:       !player.SID.Valid(),
		}
		if row.Bot {
			status.Bots++
		} else {
			status.Humans++
		}
		status.Players = append(status.Players, row)
	}

	f.mu.Lock()
	f.lastStatus = status
	f.lastGood = true
	f.mu.Unlock()

	return status, nil
}

// CVar reads a single console variable, serving repeated reads from a short
// lived cache.
func (f *Fetcher) CVar(ctx context.Context, name string) (string, error) {
	if cached, found := f.cvars.Get(name); found {
		value, ok := cached.(string)
		if ok {
			return value, nil
		}
	}

	response, errExec := New(f.address, f.password).Exec(ctx, name, false)
	if errExec != nil {
		return "", errExec
	}

	value, errValue := cs.ParseCVarValue(response, name)
	if errValue != nil {
		return "", errValue
	}

	f.cvars.Set(name, value, gocache.DefaultExpiration)

	return value, nil
}

// RoundSeconds reads mp_roundtime and converts it to seconds, falling back to
// the provided previous value when the host cannot be queried.
func (f *Fetcher) RoundSeconds(ctx context.Context, previous int) int {
	value, errCVar := f.CVar(ctx, cs.CVarRoundTime)
	if errCVar != nil {
		slog.Debug("Failed to read round duration, keeping previous",
			slog.Int("previous", previous), slog.String("error", errCVar.Error()))

		return previous
	}

	seconds, errSeconds := cs.RoundSeconds(value)
	if errSeconds != nil {
		return previous
	}

	return seconds
}
