package config

import "time"

// Config holds all configuration for the server.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// ServerConfig holds the TCP listener configuration.
type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`

	// PollInterval bounds how long an idle read or accept blocks before the
	// shutdown flag is rechecked.
	PollInterval    time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// MaxFrameBytes caps a single inbound request frame.
	MaxFrameBytes int `yaml:"max_frame_bytes" mapstructure:"max_frame_bytes"`
}

// StorageConfig holds snapshot persistence configuration.
type StorageConfig struct {
	Path           string        `yaml:"path" mapstructure:"path"`
	SaveInterval   time.Duration `yaml:"save_interval" mapstructure:"save_interval"`
	SweepInterval  time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
	SaveOnMutation bool          `yaml:"save_on_mutation" mapstructure:"save_on_mutation"`
}

// CacheConfig holds data-plane tuning. Capacity is reserved for a future
// LRU bound and is not enforced yet.
type CacheConfig struct {
	DefaultTTL time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	Capacity   int           `yaml:"capacity" mapstructure:"capacity"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Dir        string `yaml:"dir" mapstructure:"dir"`
	FileOutput bool   `yaml:"file_output" mapstructure:"file_output"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// MetricsConfig controls the Prometheus exposition listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Address string `yaml:"address" mapstructure:"address"`
}
