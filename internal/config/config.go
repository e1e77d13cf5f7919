// Package config handles loading and validating the agent configuration.
// Configuration is read once at startup and treated as immutable afterwards.
package config

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/adrg/xdg"
)

var (
	errConfigRead = errors.New("failed to read config file")
	errLoggerInit = errors.New("failed to initialize logger")
)

const (
	ConfigDirName     = "slottrack"
	DefaultConfigName = "slottrack"
	DefaultDBName     = "slottrack.db"
	EnvPrefix         = "slottrack"
)

type Config struct {
	// Collector sync settings.
	EnableSync  bool   `mapstructure:"enable_sync"`
	APIEndpoint string `mapstructure:"api_endpoint"`
	APIKey      string `mapstructure:"api_key"`
	ServerID    string `mapstructure:"server_id"`
	ServerName  string `mapstructure:"server_name"`
	ServerIP    string `mapstructure:"server_ip"`
	ServerPort  int    `mapstructure:"server_port"`
	// ServerPassword overrides the sv_password value read from the host.
	ServerPassword      string `mapstructure:"server_password"`
	SyncIntervalSeconds int    `mapstructure:"sync_interval_seconds"`

	// Game server access.
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	// ConsoleLogPath enables the local console.log source when set. The server
	// must run with -condebug for the file to exist.
	ConsoleLogPath string `mapstructure:"console_log_path"`

	// Remote log listener, used instead of the local console.log when the
	// server runs elsewhere.
	RemoteLogEnabled bool `mapstructure:"remote_log_enabled"`
	// ServerLogAddress should point to an address where the game server can
	// reach us to send logs.
	ServerLogAddress string `mapstructure:"server_log_address"`
	// ServerLogSecret is the sv_logsecret value used for log message auth.
	ServerLogSecret     int64  `mapstructure:"server_log_secret"`
	ServerListenAddress string `mapstructure:"server_listen_address"`
	UPNPEnabled         bool   `mapstructure:"upnp_enabled"`

	// Local concerns.
	StatusIntervalSeconds int    `mapstructure:"status_interval_seconds"`
	RoundDurationSeconds  int    `mapstructure:"round_duration_seconds"`
	OpsListenAddress      string `mapstructure:"ops_listen_address"`
	DatabasePath          string `mapstructure:"database_path"`
	JournalEnabled        bool   `mapstructure:"journal_enabled"`
	LogPath               string `mapstructure:"log_path"`
	Debug                 bool   `mapstructure:"debug"`
}

func (c Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}

func (c Config) StatusInterval() time.Duration {
	return time.Duration(c.StatusIntervalSeconds) * time.Second
}

// SyncConfigured tells whether the collector sync has everything it needs to
// actually deliver a payload.
func (c Config) SyncConfigured() bool {
	return c.EnableSync && c.APIEndpoint != "" && c.ServerID != ""
}

// UPNPPortMapping derives the external and internal UDP ports for the log
// listener mapping. Falls back to matching ports when an address does not
// parse.
func (c Config) UPNPPortMapping() (uint16, uint16) {
	internal := addressPort(c.ServerListenAddress, 27115)
	external := addressPort(c.ServerLogAddress, internal)

	return external, internal
}

func addressPort(address string, fallback uint16) uint16 {
	_, portString, err := net.SplitHostPort(address)
	if err != nil {
		return fallback
	}

	port, errPort := strconv.ParseUint(portString, 10, 16)
	if errPort != nil {
		return fallback
	}

	return uint16(port)
}

// Path generates a path pointing to the filename under this apps defined $XDG_CONFIG_HOME.
func Path(name string) string {
	fullPath, errFullPath := xdg.ConfigFile(path.Join(ConfigDirName, name))
	if errFullPath != nil {
		panic(errFullPath)
	}

	return fullPath
}

// LoggerInit sets up the slog global handler. Logs go to stderr by default, or
// to a file when logPath is set.
func LoggerInit(logPath string, level slog.Level) (io.Closer, error) {
	var (
		writer io.Writer = os.Stderr
		closer io.Closer
	)

	if logPath != "" {
		logFile, errLogFile := os.Create(logPath)
		if errLogFile != nil {
			return nil, errors.Join(errLogFile, errLoggerInit)
		}
		writer = logFile
		closer = logFile
	}

	logger := slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
	}))

	slog.SetDefault(logger)

	return closer, nil
}
