package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Service names used in configuration sections and environment variables
const (
	ServiceBlocks   = "blocks"
	ServiceCurrency = "currency"
	ServiceKraken   = "kraken"
)

// DefaultEndpoint is used for every service that has no endpoint configured
const DefaultEndpoint = "http://127.0.0.1:3088"

// MinRetryInterval is the shortest accepted retry_interval. Shorter or
// missing values are raised to it.
const MinRetryInterval = 2 * time.Second

// Config holds the complete application configuration
type Config struct {
	General  GeneralConfig `toml:"general"`
	Blocks   ServiceConfig `toml:"blocks"`
	Currency ServiceConfig `toml:"currency"`
	Kraken   ServiceConfig `toml:"kraken"`
	Metrics  MetricsConfig `toml:"metrics"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Name      string `toml:"name"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogFile   string `toml:"log_file"`
}

// ServiceConfig holds the connection settings of one remote service
type ServiceConfig struct {
	Endpoint       string   `toml:"endpoint"`
	RetryInterval  Duration `toml:"retry_interval"`
	ConnectTimeout Duration `toml:"connect_timeout"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a configuration with all defaults applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a TOML file and applies environment overrides
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()
	cfg.applyEnvOverrides()

	return &cfg, nil
}

// LoadFromEnv loads a .env file if present, then the file named by
// CHAINFEED_CONFIG or the first config found in the default locations.
// Without any config file the defaults plus environment overrides are used.
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	path := os.Getenv("CHAINFEED_CONFIG")
	if path == "" {
		defaultPaths := []string{
			"./configs/config.toml",
			"./config.toml",
			filepath.Join(os.Getenv("HOME"), ".config/chainfeed/config.toml"),
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		cfg := Default()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	return Load(path)
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.General.Name == "" {
		c.General.Name = "chainfeed"
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "json"
	}

	for _, svc := range []*ServiceConfig{&c.Blocks, &c.Currency, &c.Kraken} {
		if svc.Endpoint == "" {
			svc.Endpoint = DefaultEndpoint
		}
		if svc.RetryInterval.Duration < MinRetryInterval {
			svc.RetryInterval.Duration = MinRetryInterval
		}
		if svc.ConnectTimeout.Duration == 0 {
			svc.ConnectTimeout.Duration = 10 * time.Second
		}
	}

	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9108"
	}
}

// expandEnvVars expands environment variables in configuration values
func (c *Config) expandEnvVars() {
	c.General.LogFile = os.ExpandEnv(c.General.LogFile)
	c.Blocks.Endpoint = os.ExpandEnv(c.Blocks.Endpoint)
	c.Currency.Endpoint = os.ExpandEnv(c.Currency.Endpoint)
	c.Kraken.Endpoint = os.ExpandEnv(c.Kraken.Endpoint)
}

// applyEnvOverrides applies SERVER_URL to every service, then the
// service specific <SERVICE>_SERVER_URL variables
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("SERVER_URL"); url != "" {
		c.Blocks.Endpoint = url
		c.Currency.Endpoint = url
		c.Kraken.Endpoint = url
	}
	c.Blocks.Endpoint = getEnv("BLOCKS_SERVER_URL", c.Blocks.Endpoint)
	c.Currency.Endpoint = getEnv("CURRENCY_SERVER_URL", c.Currency.Endpoint)
	c.Kraken.Endpoint = getEnv("KRAKEN_SERVER_URL", c.Kraken.Endpoint)

	c.General.LogLevel = getEnv("LOG_LEVEL", c.General.LogLevel)
}

// Service returns the configuration of the named service
func (c *Config) Service(name string) (ServiceConfig, bool) {
	switch strings.ToLower(name) {
	case ServiceBlocks:
		return c.Blocks, true
	case ServiceCurrency:
		return c.Currency, true
	case ServiceKraken:
		return c.Kraken, true
	default:
		return ServiceConfig{}, false
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
