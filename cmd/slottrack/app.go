package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leighmacdonald/slottrack/internal/config"
	"github.com/leighmacdonald/slottrack/internal/cs/console"
	"github.com/leighmacdonald/slottrack/internal/cs/events"
	"github.com/leighmacdonald/slottrack/internal/cs/rcon"
	"github.com/leighmacdonald/slottrack/internal/network/upnp"
	"github.com/leighmacdonald/slottrack/internal/ops"
	"github.com/leighmacdonald/slottrack/internal/publish"
	"github.com/leighmacdonald/slottrack/internal/store"
	"github.com/leighmacdonald/slottrack/internal/tracker"
)

// App is the main application container. It owns very little logic itself,
// its job is wiring the log source, tracker, journal and publisher together
// and supervising their goroutines.
type App struct {
	config    config.Config
	router    *events.Router
	source    console.Source
	tracker   *tracker.Tracker
	journal   *tracker.Journal
	publisher *publish.Publisher
}

// New returns a new application instance. To actually start the app you must
// call Start().
func New(conf config.Config, router *events.Router, source console.Source, fetcher *rcon.Fetcher,
	publisher *publish.Publisher, queries *store.Queries,
) *App {
	var syncer tracker.Syncer
	if publisher != nil {
		syncer = publisher
	}

	tracked := tracker.New(conf, fetcher, syncer)
	tracked.Subscribe(router)

	app := &App{
		config:    conf,
		router:    router,
		source:    source,
		tracker:   tracked,
		publisher: publisher,
	}

	if queries != nil {
		app.journal = tracker.NewJournal(queries, tracked.SessionID())
		app.journal.Subscribe(router)
	}

	return app
}

// Start brings up all the background goroutines and blocks until the context
// is cancelled or a fatal error occurs.
func (app *App) Start(ctx context.Context) error {
	if errOpen := app.source.Open(ctx); errOpen != nil {
		return errOpen
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := app.source.Close(closeCtx); err != nil {
			slog.Error("Failed to close log source", slog.String("error", err.Error()))
		}
	}()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		app.source.Start(groupCtx, app.router)

		return nil
	})

	group.Go(func() error {
		app.tracker.Start(groupCtx)

		return nil
	})

	if app.publisher != nil {
		group.Go(func() error {
			app.publisher.Start(groupCtx)

			return nil
		})
	}

	if app.journal != nil {
		group.Go(func() error {
			app.journal.Start(groupCtx)

			return nil
		})
	}

	if app.config.OpsListenAddress != "" {
		group.Go(func() error {
			return ops.NewServer(app.config.OpsListenAddress, app.tracker).Start(groupCtx)
		})
	}

	if app.config.RemoteLogEnabled && app.config.UPNPEnabled {
		external, internal := app.config.UPNPPortMapping()
		group.Go(func() error {
			upnp.New(external, internal).Start(groupCtx)

			return nil
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
