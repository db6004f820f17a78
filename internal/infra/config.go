package infra

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the client. Values load from YAML and
// are overridden by environment variables; protocol timing lives here so
// no component carries magic numbers.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		WSURL     string `yaml:"ws_url"`
		APIURL    string `yaml:"api_url"`
		TableID   string `yaml:"table_id"`
		AuthToken string `yaml:"auth_token"`
	} `yaml:"server"`

	Connection struct {
		HandshakeTimeoutSec  int `yaml:"handshake_timeout_sec"`
		HeartbeatIntervalSec int `yaml:"heartbeat_interval_sec"`
		HeartbeatTimeoutSec  int `yaml:"heartbeat_timeout_sec"`
		MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`
		ReconnectBaseDelayMS int `yaml:"reconnect_base_delay_ms"`
	} `yaml:"connection"`

	Reconcile struct {
		TimeoutSec      int `yaml:"timeout_sec"`
		MaxPushCount    int `yaml:"max_push_count"`
		DisplayGraceSec int `yaml:"display_grace_sec"`
	} `yaml:"reconcile"`

	Betting struct {
		DefaultMinBet string `yaml:"default_min_bet"`
		DefaultMaxBet string `yaml:"default_max_bet"`
	} `yaml:"betting"`

	Storage struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies defaults, then
// environment overrides, then validates.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a config with only defaults applied. Used by
// tests and by components that are constructed without a file.
func DefaultConfig() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "sicbo-client"
	}
	if c.Connection.HandshakeTimeoutSec == 0 {
		c.Connection.HandshakeTimeoutSec = 10
	}
	if c.Connection.HeartbeatIntervalSec == 0 {
		c.Connection.HeartbeatIntervalSec = 30
	}
	if c.Connection.HeartbeatTimeoutSec == 0 {
		c.Connection.HeartbeatTimeoutSec = 10
	}
	if c.Connection.MaxReconnectAttempts == 0 {
		c.Connection.MaxReconnectAttempts = 5
	}
	if c.Connection.ReconnectBaseDelayMS == 0 {
		c.Connection.ReconnectBaseDelayMS = 1000
	}
	if c.Reconcile.TimeoutSec == 0 {
		c.Reconcile.TimeoutSec = 15
	}
	if c.Reconcile.MaxPushCount == 0 {
		c.Reconcile.MaxPushCount = 5
	}
	if c.Reconcile.DisplayGraceSec == 0 {
		c.Reconcile.DisplayGraceSec = 3
	}
	if c.Betting.DefaultMinBet == "" {
		c.Betting.DefaultMinBet = "10"
	}
	if c.Betting.DefaultMaxBet == "" {
		c.Betting.DefaultMaxBet = "50000"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Server.WSURL, "ws://") && !strings.HasPrefix(c.Server.WSURL, "wss://") {
		return fmt.Errorf("invalid websocket URL: %q", c.Server.WSURL)
	}
	if c.Server.TableID == "" {
		return fmt.Errorf("table_id is required")
	}
	if c.Connection.HeartbeatTimeoutSec >= c.Connection.HeartbeatIntervalSec {
		return fmt.Errorf("heartbeat timeout (%ds) must be below the interval (%ds)",
			c.Connection.HeartbeatTimeoutSec, c.Connection.HeartbeatIntervalSec)
	}
	if c.Connection.MaxReconnectAttempts < 1 {
		return fmt.Errorf("max reconnect attempts must be at least 1")
	}
	if c.Reconcile.MaxPushCount < 1 {
		return fmt.Errorf("max push count must be at least 1")
	}
	return nil
}

// Environment overrides take precedence over file values so tokens stay
// out of config files.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("SICBO_WS_URL"); v != "" {
		cfg.Server.WSURL = v
	}
	if v := os.Getenv("SICBO_API_URL"); v != "" {
		cfg.Server.APIURL = v
	}
	if v := os.Getenv("SICBO_TABLE_ID"); v != "" {
		cfg.Server.TableID = v
	}
	if v := os.Getenv("SICBO_AUTH_TOKEN"); v != "" {
		cfg.Server.AuthToken = v
	}
	if v := os.Getenv("SICBO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Duration accessors keep time.Duration conversions in one place.

func (c *Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.Connection.HandshakeTimeoutSec) * time.Second
}

func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Connection.HeartbeatIntervalSec) * time.Second
}

func (c *Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.Connection.HeartbeatTimeoutSec) * time.Second
}

func (c *Config) ReconnectBaseDelay() time.Duration {
	return time.Duration(c.Connection.ReconnectBaseDelayMS) * time.Millisecond
}

func (c *Config) ReconcileTimeout() time.Duration {
	return time.Duration(c.Reconcile.TimeoutSec) * time.Second
}

func (c *Config) DisplayGrace() time.Duration {
	return time.Duration(c.Reconcile.DisplayGraceSec) * time.Second
}
