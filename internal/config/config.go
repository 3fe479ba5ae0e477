// Package config provides configuration management for vidarr using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort            = 8080
	defaultServerTimeout         = 30 * time.Second
	defaultShutdownTimeout       = 10 * time.Second
	defaultMaxOpenConns          = 25
	defaultMaxIdleConns          = 10
	defaultConnMaxIdleTime       = 30 * time.Minute
	defaultMaxSessions           = 4
	defaultAcquireTimeout        = 3 * time.Second
	defaultSessionTimeout        = 30 * time.Minute
	defaultSweepInterval         = time.Minute
	defaultDispatchInterval      = 30 * time.Second
	defaultReconcileInterval     = time.Minute
	defaultMaxRunningJobs        = 2
	defaultStabilityPollInterval = 2 * time.Second
	defaultStabilityMaxWait      = 10 * time.Minute
	defaultLockTTL               = 5 * time.Minute
	defaultRunnerTimeout         = 15 * time.Second
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Library   LibraryConfig   `mapstructure:"library"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	FFmpeg    FFmpegConfig    `mapstructure:"ffmpeg"`
	Transcode TranscodeConfig `mapstructure:"transcode"`
	Convert   ConvertConfig   `mapstructure:"convert"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// LibraryConfig holds watched library configuration.
type LibraryConfig struct {
	// Dir is the root of the watched media library.
	Dir string `mapstructure:"dir"`
	// StabilityPollInterval is how often file mtime is sampled while waiting
	// for a newly created file to stop changing.
	StabilityPollInterval time.Duration `mapstructure:"stability_poll_interval"`
	// StabilityMaxWait bounds the stability wait; files that never stabilize
	// within this budget are skipped.
	StabilityMaxWait time.Duration `mapstructure:"stability_max_wait"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// FFmpegConfig holds FFmpeg binary configuration.
type FFmpegConfig struct {
	BinaryPath string `mapstructure:"binary_path"` // Path to ffmpeg binary (empty = auto-detect)
	ProbePath  string `mapstructure:"probe_path"`  // Path to ffprobe binary (empty = auto-detect)
}

// TranscodeConfig holds live transcode process pool configuration.
type TranscodeConfig struct {
	// MaxSessions is the hard cap on concurrently running encoder processes.
	MaxSessions int `mapstructure:"max_sessions"`
	// AcquireTimeout is how long a request waits for a pool slot before
	// being rejected as busy.
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
	// SessionTimeout is the maximum lifetime of a single live session.
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	// SweepInterval is how often the pool checks for dead or expired sessions.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// ConvertConfig holds batch conversion pipeline configuration.
type ConvertConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	MaxRunningJobs    int           `mapstructure:"max_running_jobs"`
	DispatchInterval  time.Duration `mapstructure:"dispatch_interval"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	Preset            string        `mapstructure:"preset"`
	// Runner selects the job runner implementation: "http" or "exec".
	Runner string `mapstructure:"runner"`
	// RunnerURL is the base URL of the external job runner (http runner only).
	RunnerURL string `mapstructure:"runner_url"`
	// RunnerTimeout bounds individual runner API calls.
	RunnerTimeout time.Duration `mapstructure:"runner_timeout"`
}

// RedisConfig holds redis connection configuration for distributed locks.
// When Addr is empty, vidarr falls back to in-process locks (single node).
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with VIDARR_ and use underscores for
// nesting. Example: VIDARR_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/vidarr")
		v.AddConfigPath("$HOME/.vidarr")
	}

	v.SetEnvPrefix("VIDARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file so defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "vidarr.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Library defaults
	v.SetDefault("library.dir", "./library")
	v.SetDefault("library.stability_poll_interval", defaultStabilityPollInterval)
	v.SetDefault("library.stability_max_wait", defaultStabilityMaxWait)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// FFmpeg defaults
	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.probe_path", "")

	// Transcode defaults
	v.SetDefault("transcode.max_sessions", defaultMaxSessions)
	v.SetDefault("transcode.acquire_timeout", defaultAcquireTimeout)
	v.SetDefault("transcode.session_timeout", defaultSessionTimeout)
	v.SetDefault("transcode.sweep_interval", defaultSweepInterval)

	// Convert defaults
	v.SetDefault("convert.enabled", true)
	v.SetDefault("convert.max_running_jobs", defaultMaxRunningJobs)
	v.SetDefault("convert.dispatch_interval", defaultDispatchInterval)
	v.SetDefault("convert.reconcile_interval", defaultReconcileInterval)
	v.SetDefault("convert.preset", "h264-aac-mp4")
	v.SetDefault("convert.runner", "exec")
	v.SetDefault("convert.runner_url", "")
	v.SetDefault("convert.runner_timeout", defaultRunnerTimeout)

	// Redis defaults
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", defaultLockTTL)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if c.Library.Dir == "" {
		return fmt.Errorf("library.dir is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Transcode.MaxSessions < 1 {
		return fmt.Errorf("transcode.max_sessions must be at least 1")
	}
	if c.Convert.MaxRunningJobs < 1 {
		return fmt.Errorf("convert.max_running_jobs must be at least 1")
	}

	validRunners := map[string]bool{"http": true, "exec": true}
	if !validRunners[c.Convert.Runner] {
		return fmt.Errorf("convert.runner must be one of: http, exec")
	}
	if c.Convert.Runner == "http" && c.Convert.RunnerURL == "" {
		return fmt.Errorf("convert.runner_url is required when convert.runner is http")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
