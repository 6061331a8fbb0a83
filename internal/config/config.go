// Package config loads server configuration from defaults, an optional
// config file and IMDB_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 65432

	DefaultSnapshotPath  = "persistence.json"
	DefaultSaveInterval  = 60 * time.Second
	DefaultSweepInterval = time.Second
	DefaultTTL           = time.Hour

	// DefaultCacheCapacity is carried for a future LRU bound; the store
	// does not enforce it yet.
	DefaultCacheCapacity = 100

	DefaultFileWriteDelay = 150 * time.Millisecond // let the editor finish writing before reload
)

var (
	lastReload  time.Time
	reloadMutex sync.Mutex
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			PollInterval:    time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxFrameBytes:   1024,
		},
		Storage: StorageConfig{
			Path:           DefaultSnapshotPath,
			SaveInterval:   DefaultSaveInterval,
			SweepInterval:  DefaultSweepInterval,
			SaveOnMutation: true,
		},
		Cache: CacheConfig{
			DefaultTTL: DefaultTTL,
			Capacity:   DefaultCacheCapacity,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Dir:        "./logs",
			FileOutput: false,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{
				Enabled: false,
				Address: ":9090",
			},
		},
	}
}

// Load reads configuration from file and environment variables on top of
// the defaults. When onConfigChange is non-nil the config file is watched
// and the callback fired (debounced) on edits.
func Load(onConfigChange func()) (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("IMDB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults(config)

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; everything has a default.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if configFile := os.Getenv("IMDB_CONFIG_FILE"); configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if onConfigChange != nil {
		viper.WatchConfig()
		viper.OnConfigChange(func(e fsnotify.Event) {
			reloadMutex.Lock()
			defer reloadMutex.Unlock()

			// Editors fire several events per save; collapse them.
			now := time.Now()
			if now.Sub(lastReload) < 500*time.Millisecond {
				return
			}
			lastReload = now

			time.Sleep(DefaultFileWriteDelay)
			onConfigChange()
		})
	}

	return config, nil
}

// setDefaults registers every key with viper so environment variables are
// picked up even when the key never appears in a config file.
func setDefaults(config *Config) {
	viper.SetDefault("server.host", config.Server.Host)
	viper.SetDefault("server.port", config.Server.Port)
	viper.SetDefault("server.poll_interval", config.Server.PollInterval)
	viper.SetDefault("server.shutdown_timeout", config.Server.ShutdownTimeout)
	viper.SetDefault("server.max_frame_bytes", config.Server.MaxFrameBytes)
	viper.SetDefault("storage.path", config.Storage.Path)
	viper.SetDefault("storage.save_interval", config.Storage.SaveInterval)
	viper.SetDefault("storage.sweep_interval", config.Storage.SweepInterval)
	viper.SetDefault("storage.save_on_mutation", config.Storage.SaveOnMutation)
	viper.SetDefault("cache.default_ttl", config.Cache.DefaultTTL)
	viper.SetDefault("cache.capacity", config.Cache.Capacity)
	viper.SetDefault("logging.level", config.Logging.Level)
	viper.SetDefault("logging.dir", config.Logging.Dir)
	viper.SetDefault("logging.file_output", config.Logging.FileOutput)
	viper.SetDefault("logging.max_size", config.Logging.MaxSize)
	viper.SetDefault("logging.max_backups", config.Logging.MaxBackups)
	viper.SetDefault("logging.max_age", config.Logging.MaxAge)
	viper.SetDefault("telemetry.metrics.enabled", config.Telemetry.Metrics.Enabled)
	viper.SetDefault("telemetry.metrics.address", config.Telemetry.Metrics.Address)
}
