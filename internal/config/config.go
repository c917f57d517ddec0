package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve without system zoneinfo

	"github.com/spf13/viper"

	"github.com/fortuna/hoopsdaily/internal/store"
)

// EnvPrefix namespaces environment overrides, e.g. HOOPS_DATA_DIR.
const EnvPrefix = "HOOPS"

// Ledger backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config is the runtime configuration shared by every command.
type Config struct {
	DataDir       string        `mapstructure:"data_dir"`
	LedgerBackend string        `mapstructure:"ledger_backend"`
	LedgerDSN     string        `mapstructure:"ledger_dsn"`
	RedisURL      string        `mapstructure:"redis_url"`
	ESPNBaseURL   string        `mapstructure:"espn_base_url"`
	RequestDelay  time.Duration `mapstructure:"request_delay"`
	DayPause      time.Duration `mapstructure:"day_pause"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	RESTPort      string        `mapstructure:"rest_port"`
	WSPort        string        `mapstructure:"ws_port"`
	Schedule      string        `mapstructure:"schedule"`
	Timezone      string        `mapstructure:"timezone"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", filepath.Join("docs", "data"))
	v.SetDefault("ledger_backend", BackendFile)
	v.SetDefault("ledger_dsn", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("espn_base_url", "https://site.api.espn.com/apis/site/v2/sports")
	v.SetDefault("request_delay", "500ms")
	v.SetDefault("day_pause", "1s")
	v.SetDefault("cache_ttl", "168h")
	v.SetDefault("rest_port", "8080")
	v.SetDefault("ws_port", "8081")
	v.SetDefault("schedule", "0 6 * * *")
	v.SetDefault("timezone", "America/New_York")
}

// Load resolves defaults, then the optional YAML file at path, then HOOPS_*
// environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case BackendFile:
	case BackendPostgres:
		if c.LedgerDSN == "" {
			return fmt.Errorf("ledger_backend %q requires ledger_dsn", c.LedgerBackend)
		}
	default:
		return fmt.Errorf("unknown ledger_backend %q (want %s or %s)", c.LedgerBackend, BackendFile, BackendPostgres)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.RequestDelay < 0 || c.DayPause < 0 || c.CacheTTL < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LedgerPath is the players.json location for the file backend.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, store.LedgerFile)
}
