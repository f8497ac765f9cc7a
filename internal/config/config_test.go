package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port %d", cfg.Server.Port)
	}
	if cfg.Market.DefaultLiquidity != "100.0" {
		t.Errorf("default liquidity %q", cfg.Market.DefaultLiquidity)
	}
	if cfg.Market.MinDuration != time.Minute {
		t.Errorf("default min_duration %s", cfg.Market.MinDuration)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("default logging %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `
server:
  port: 9090
market:
  default_liquidity: "250.5"
  min_duration: 2h
store:
  data_dir: /tmp/amm-test
logging:
  level: debug
  format: json
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port %d", cfg.Server.Port)
	}
	if cfg.Market.MinDuration != 2*time.Hour {
		t.Errorf("min_duration %s", cfg.Market.MinDuration)
	}
	b, err := cfg.Market.DefaultB()
	if err != nil {
		t.Fatalf("DefaultB: %v", err)
	}
	if b.String() != "250.5" {
		t.Errorf("default b = %s", b)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("AMM_SERVER_PORT", "7070")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("env override ignored: port %d", cfg.Server.Port)
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"missing data dir", func(c *Config) { c.Store.DataDir = "" }},
		{"zero min duration", func(c *Config) { c.Market.MinDuration = 0 }},
		{"unparseable liquidity", func(c *Config) { c.Market.DefaultLiquidity = "lots" }},
		{"non-positive liquidity", func(c *Config) { c.Market.DefaultLiquidity = "0" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := Load(writeConfig(t, "{}\n"))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate should fail")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}
