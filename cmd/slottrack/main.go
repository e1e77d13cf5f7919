package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/fang"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/leighmacdonald/slottrack/internal/config"
	"github.com/leighmacdonald/slottrack/internal/cs/console"
	"github.com/leighmacdonald/slottrack/internal/cs/events"
	"github.com/leighmacdonald/slottrack/internal/cs/rcon"
	"github.com/leighmacdonald/slottrack/internal/network"
	"github.com/leighmacdonald/slottrack/internal/publish"
	"github.com/leighmacdonald/slottrack/internal/store"
)

var (
	BuildVersion   = "master"
	BuildCommit    = "00000000"
	BuildDate      = time.Now().Format("2006-01-02T15:04:05Z")
	BuildGoVersion = runtime.Version()
	cfgFile        string
	rootCmd        = &cobra.Command{
		Use:   "slottrack",
		Short: "CS2 server telemetry agent",
		Long:  `slottrack - Tracks players, rounds and scores on a CS2 server and reports them to a collector API`,
		RunE:  run,
	}

	versionCmd = &cobra.Command{
		Use:               "version",
		Short:             "Print version information",
		Long:              "Print detailed version information about slottrack",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		Run:               version,
	}
)

var errApp = errors.New("application error")

func main() {
	configPath := config.Path(config.DefaultConfigName)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", configPath, "Config file path")
	rootCmd.AddCommand(versionCmd)

	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		slog.Error("Exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func version(_ *cobra.Command, _ []string) {
	fmt.Printf("slottrack - CS2 server telemetry agent\n\n") //nolint:forbidigo
	fmt.Printf("  Version: %s\n", BuildVersion)              //nolint:forbidigo
	fmt.Printf("  Commit:  %s\n", BuildCommit)               //nolint:forbidigo
	fmt.Printf("  Built:   %s\n", BuildDate)                 //nolint:forbidigo
	fmt.Printf("  Runtime: %s\n\n", BuildGoVersion)          //nolint:forbidigo
}

// run is the main entry point of slottrack.
func run(cmd *cobra.Command, _ []string) error {
	// If PROFILE is set, it will be used as the output file path for the profiler.
	if len(os.Getenv("PROFILE")) > 0 {
		f, err := os.Create(os.Getenv("PROFILE"))
		if err != nil {
			return errors.Join(err, errApp)
		}

		if errStart := pprof.StartCPUProfile(f); errStart != nil {
			return errors.Join(errStart, errApp)
		}
		defer pprof.StopCPUProfile()
	}

	// Make sure our config & data home exists.
	if err := os.MkdirAll(path.Join(xdg.ConfigHome, config.ConfigDirName), 0o750); err != nil {
		return errors.Join(err, errApp)
	}

	configLoader := config.NewLoader()
	userConfig, errConfig := configLoader.Read()
	if errConfig != nil {
		return errors.Join(errApp, errConfig)
	}

	level := slog.LevelInfo
	if userConfig.Debug {
		level = slog.LevelDebug
	}

	logFile, errLogger := config.LoggerInit(userConfig.LogPath, level)
	if errLogger != nil {
		return errors.Join(errLogger, errApp)
	}

	if logFile != nil {
		defer func(closer io.Closer) {
			if err := closer.Close(); err != nil {
				slog.Error("Failed to close log file", slog.String("error", err.Error()))
			}
		}(logFile)
	}

	slog.Info("Starting slottrack", slog.String("version", BuildVersion),
		slog.String("commit", BuildCommit), slog.String("date", BuildDate),
		slog.String("go", runtime.Version()))

	// Best effort default for the advertised ip when syncing is on but no ip
	// was configured.
	if userConfig.SyncConfigured() && userConfig.ServerIP == "" {
		ipCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		if info, errIP := network.FetchIPInfo(ipCtx); errIP == nil {
			userConfig.ServerIP = info.IP
		} else {
			slog.Warn("Failed to discover external ip", slog.String("error", errIP.Error()))
		}
		cancel()
	}

	// Setup the sqlite database for the local journal.
	var queries *store.Queries
	if userConfig.JournalEnabled {
		if err := os.MkdirAll(path.Dir(userConfig.DatabasePath), 0o750); err != nil {
			return errors.Join(err, errApp)
		}

		database, errDB := store.Open(cmd.Context(), userConfig.DatabasePath, true)
		if errDB != nil {
			return errors.Join(errDB, errApp)
		}

		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("Error closing database", slog.String("error", err.Error()))
			}
		}()

		queries = store.New(database)
	}

	// Setup a log source depending on the operating mode.
	source, errSource := newLogSource(userConfig)
	if errSource != nil {
		return errors.Join(errSource, errApp)
	}

	router := events.NewRouter()
	fetcher := rcon.NewFetcher(userConfig.Address, userConfig.Password)

	var publisher *publish.Publisher
	if userConfig.SyncConfigured() {
		reporter := publish.NewHTTPReporter(
			&http.Client{Timeout: 30 * time.Second},
			userConfig.APIEndpoint,
			userConfig.APIKey,
			userConfig.ServerID)
		publisher = publish.NewPublisher(userConfig, reporter)
	} else {
		slog.Info("Collector sync disabled, tracking locally only",
			slog.Bool("enable_sync", userConfig.EnableSync))
	}

	app := New(userConfig, router, source, fetcher, publisher, queries)

	return app.Start(cmd.Context())
}

func newLogSource(conf config.Config) (console.Source, error) {
	if conf.RemoteLogEnabled {
		return console.NewRemote(console.RemoteOpts{
			ExternalAddress: conf.ServerLogAddress,
			ListenAddress:   conf.ServerListenAddress,
			RemoteAddress:   conf.Address,
			RemotePassword:  conf.Password,
			Secret:          conf.ServerLogSecret,
		})
	}

	if conf.ConsoleLogPath == "" {
		return nil, console.ErrConfig
	}

	return console.NewLocal(conf.ConsoleLogPath), nil
}
