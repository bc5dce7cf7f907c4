package config

import (
	"fmt"
	"time"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Fanout backends.
const (
	FanoutLocal = "local"
	FanoutNATS  = "nats"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Fanout   FanoutConfig   `mapstructure:"fanout" yaml:"fanout"`
	Activity ActivityConfig `mapstructure:"activity" yaml:"activity"`
	Media    MediaConfig    `mapstructure:"media" yaml:"media"`
}

// StoreConfig selects and configures the shared key-value store.
type StoreConfig struct {
	Backend   string       `mapstructure:"backend" yaml:"backend"`
	KeyPrefix string       `mapstructure:"key_prefix" yaml:"key_prefix"`
	Redis     RedisConfig  `mapstructure:"redis" yaml:"redis"`
	SQLite    SQLiteConfig `mapstructure:"sqlite" yaml:"sqlite"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// FanoutConfig selects how broadcasts reach other servers.
type FanoutConfig struct {
	Backend string     `mapstructure:"backend" yaml:"backend"`
	NATS    NATSConfig `mapstructure:"nats" yaml:"nats"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url" yaml:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix" yaml:"subject_prefix"`
}

// ActivityConfig controls activity log entries.
type ActivityConfig struct {
	// AnnounceLeave appends "<user> left the room." on leave.
	AnnounceLeave bool `mapstructure:"announce_leave" yaml:"announce_leave"`
}

// MediaConfig holds LiveKit credentials for join tokens.
type MediaConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	APIKey    string        `mapstructure:"api_key" yaml:"api_key"`
	APISecret string        `mapstructure:"api_secret" yaml:"api_secret"`
	URL       string        `mapstructure:"url" yaml:"url"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		MaxMessageBytes:   1 << 20,
		LogLevel:          "info",
		LogFormat:         "console",
		Store: StoreConfig{
			Backend:   StoreMemory,
			KeyPrefix: "wirestream",
			Redis:     RedisConfig{Addr: "localhost:6379"},
			SQLite:    SQLiteConfig{Path: "wirestream.db"},
		},
		Fanout: FanoutConfig{
			Backend: FanoutLocal,
			NATS: NATSConfig{
				URL:           "nats://localhost:4222",
				SubjectPrefix: "wirestream",
			},
		},
		Media: MediaConfig{
			URL:      "ws://localhost:7880",
			TokenTTL: time.Hour,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// Validate checks backend names and required credentials.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Fanout.Backend {
	case FanoutLocal, FanoutNATS:
	default:
		return fmt.Errorf("unknown fanout backend %q", c.Fanout.Backend)
	}
	if c.Store.Backend == StoreMemory && c.Fanout.Backend == FanoutNATS {
		return fmt.Errorf("fanout backend %q needs a shared store, not %q", FanoutNATS, StoreMemory)
	}
	if c.Media.Enabled && (c.Media.APIKey == "" || c.Media.APISecret == "") {
		return fmt.Errorf("media enabled without api_key/api_secret")
	}
	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("max_message_bytes must be positive")
	}
	return nil
}
