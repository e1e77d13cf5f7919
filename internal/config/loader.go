package config

import (
	"errors"
	"path"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Loader handles setting up viper and loading configuration from files and
// the environment. There is no reload support, the agent reads its config
// once on startup.
type Loader struct {
	*viper.Viper
}

func NewLoader() *Loader {
	loader := Loader{Viper: viper.New()}
	loader.SetDefault("enable_sync", false)
	loader.SetDefault("api_endpoint", "")
	loader.SetDefault("api_key", "")
	loader.SetDefault("server_id", "")
	loader.SetDefault("server_name", "")
	loader.SetDefault("server_ip", "")
	loader.SetDefault("server_port", 27015)
	loader.SetDefault("server_password", "")
	loader.SetDefault("sync_interval_seconds", 60)
	loader.SetDefault("address", "127.0.0.1:27015")
	loader.SetDefault("password", "")
	loader.SetDefault("console_log_path", "")
	loader.SetDefault("remote_log_enabled", false)
	loader.SetDefault("server_log_address", "")
	loader.SetDefault("server_log_secret", 0)
	loader.SetDefault("server_listen_address", "0.0.0.0:27115")
	loader.SetDefault("upnp_enabled", false)
	loader.SetDefault("status_interval_seconds", 5)
	loader.SetDefault("round_duration_seconds", 115)
	loader.SetDefault("ops_listen_address", "")
	loader.SetDefault("database_path", path.Join(xdg.DataHome, ConfigDirName, DefaultDBName))
	loader.SetDefault("journal_enabled", true)
	loader.SetDefault("log_path", "")
	loader.SetDefault("debug", false)
	loader.SetConfigName(DefaultConfigName)
	loader.SetConfigType("yaml")
	loader.SetEnvPrefix(EnvPrefix)
	loader.AddConfigPath(Path(""))
	loader.AddConfigPath(".")
	loader.AutomaticEnv()

	return &loader
}

func (cl *Loader) Path() string {
	return cl.ConfigFileUsed()
}

func (cl *Loader) Read() (Config, error) {
	if err := cl.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return Config{}, errors.Join(err, errConfigRead)
		}
	}

	var config Config
	if err := cl.Unmarshal(&config); err != nil {
		return Config{}, errors.Join(err, errConfigRead)
	}

	if config.SyncIntervalSeconds <= 0 {
		config.SyncIntervalSeconds = 60
	}
	if config.StatusIntervalSeconds <= 0 {
		config.StatusIntervalSeconds = 5
	}
	if config.RoundDurationSeconds <= 0 {
		config.RoundDurationSeconds = 115
	}

	return config, nil
}
