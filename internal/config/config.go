// Package config defines all configuration for the market daemon.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// fields overridable via AMM_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"lmsr-amm/pkg/fixed"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Market  MarketConfig  `mapstructure:"market"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the HTTP/WebSocket API server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// MarketConfig sets market-creation policy.
//
//   - DefaultLiquidity: LMSR b used when a create request omits one,
//     as a decimal string (e.g. "100.0"). Must be positive.
//   - MinDuration: minimum gap between creation and resolve_at; markets
//     shorter than this are rejected at initialize.
type MarketConfig struct {
	DefaultLiquidity string        `mapstructure:"default_liquidity"`
	MinDuration      time.Duration `mapstructure:"min_duration"`
}

// StoreConfig sets where market and position records are persisted.
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides (AMM_ prefix,
// dots replaced by underscores, e.g. AMM_SERVER_PORT).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("market.default_liquidity", "100.0")
	v.SetDefault("market.min_duration", time.Minute)
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Store.DataDir == "" {
		return fmt.Errorf("store.data_dir is required")
	}
	if c.Market.MinDuration <= 0 {
		return fmt.Errorf("market.min_duration must be > 0")
	}
	b, err := c.Market.DefaultB()
	if err != nil {
		return fmt.Errorf("market.default_liquidity: %w", err)
	}
	if b <= 0 {
		return fmt.Errorf("market.default_liquidity must be > 0")
	}
	return nil
}

// DefaultB parses the configured default liquidity parameter.
func (m MarketConfig) DefaultB() (fixed.Value, error) {
	return fixed.Parse(m.DefaultLiquidity)
}
