// Package config provides configuration management for the gateway.
// Adapted from the prior system's internal/config/config.go: same
// Load/Default/LoadOrDefault trio, same ${VAR}-substitution-plus-env-override
// shape, trimmed to the sections this gateway needs (SPEC_FULL §2A).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Kiro      KiroConfig      `toml:"kiro"`
	Pool      PoolConfig      `toml:"pool"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	ModelMap  ModelMapConfig  `toml:"modelmap"`
}

// ServerConfig contains the entrypoint's bind settings.
type ServerConfig struct {
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`
}

// KiroConfig controls upstream connectivity (SPEC_FULL §6).
type KiroConfig struct {
	Region         string        `toml:"region"`
	KiroVersion    string        `toml:"kiro_version"`
	ProxyURL       string        `toml:"proxy_url"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	MaxIdleConns   int           `toml:"max_idle_conns"`
}

// PoolConfig controls the Account Pool (SPEC_FULL §4.E).
type PoolConfig struct {
	RosterPath       string        `toml:"roster_path"`
	CooldownInterval time.Duration `toml:"cooldown_interval"`
	SelectionPolicy  string        `toml:"selection_policy"` // round-robin, random, least-used
}

// TelemetryConfig controls the metrics HTTP surface.
type TelemetryConfig struct {
	MetricsBindAddress string `toml:"metrics_bind_address"`
}

// ModelMapConfig points at the static rule-table used by the Model Mapper
// (SPEC_FULL §4.A) when one is bound.
type ModelMapConfig struct {
	RuleTablePath      string `toml:"rule_table_path"`
	ValidateToolSchema bool   `toml:"validate_tool_schema"`
}

// Default returns a configuration with sane standalone defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddress: "0.0.0.0",
			Port:        8080,
		},
		Kiro: KiroConfig{
			Region:         "us-east-1",
			KiroVersion:    "0.8.0",
			RequestTimeout: 5 * time.Minute,
			MaxIdleConns:   20,
		},
		Pool: PoolConfig{
			RosterPath:       "accounts.json",
			CooldownInterval: 5 * time.Minute,
			SelectionPolicy:  "round-robin",
		},
		Telemetry: TelemetryConfig{
			MetricsBindAddress: "0.0.0.0:9090",
		},
	}
}

// Load loads configuration from a TOML file, starting from Default() so an
// incomplete file still yields a usable config.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.substituteEnvVars()
	return cfg, nil
}

// LoadOrDefault loads config from file or falls back to Default() on error.
func LoadOrDefault(path string) *Config {
	if path == "" {
		return Default()
	}

	cfg, err := Load(path)
	if err != nil {
		fmt.Printf("Warning: Failed to load config from %s: %v\n", path, err)
		return Default()
	}
	return cfg
}

// substituteEnvVars expands ${VAR} patterns in secret-bearing fields and
// applies direct GATEWAY_* overrides for container deployments.
func (c *Config) substituteEnvVars() {
	c.Kiro.ProxyURL = expandEnv(c.Kiro.ProxyURL)

	if v := os.Getenv("GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("GATEWAY_KIRO_REGION"); v != "" {
		c.Kiro.Region = v
	}
	if v := os.Getenv("GATEWAY_KIRO_PROXY_URL"); v != "" {
		c.Kiro.ProxyURL = v
	}
	if v := os.Getenv("GATEWAY_POOL_ROSTER_PATH"); v != "" {
		c.Pool.RosterPath = v
	}
	if v := os.Getenv("GATEWAY_METRICS_BIND_ADDRESS"); v != "" {
		c.Telemetry.MetricsBindAddress = v
	}
}

// expandEnv expands ${VAR} or $VAR patterns.
func expandEnv(s string) string {
	if s == "" {
		return s
	}
	return os.ExpandEnv(s)
}
