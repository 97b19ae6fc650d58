// Package config loads and validates the server configuration from a YAML
// file with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"deckhand/pkg/logger"
)

// Duration wraps time.Duration so YAML values like "10s" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Inventory InventoryConfig `yaml:"inventory"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Events    EventsConfig    `yaml:"events"`
	Exec      ExecConfig      `yaml:"exec"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

type InventoryConfig struct {
	RefreshInterval Duration `yaml:"refresh_interval"`
	RuntimeTimeout  Duration `yaml:"runtime_timeout"`
}

type MetricsConfig struct {
	SampleInterval Duration `yaml:"sample_interval"`
	Retention      Duration `yaml:"retention"`
	PerContainer   bool     `yaml:"per_container"`
}

type EventsConfig struct {
	QueueSize   int `yaml:"queue_size"`
	ReplayDepth int `yaml:"replay"`
}

type ExecConfig struct {
	Timeout Duration     `yaml:"timeout"`
	Policy  PolicyConfig `yaml:"policy"`
}

type PolicyConfig struct {
	Deny []PolicyRule `yaml:"deny"`
}

// PolicyRule is one denylist entry. Kind is token, prefix or pattern.
type PolicyRule struct {
	Kind  string `yaml:"kind"`
	Value string `yaml:"value"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{Listen: ":8085"},
		Inventory: InventoryConfig{
			RefreshInterval: Duration(10 * time.Second),
			RuntimeTimeout:  Duration(15 * time.Second),
		},
		Metrics: MetricsConfig{
			SampleInterval: Duration(60 * time.Second),
			Retention:      Duration(time.Hour),
		},
		Events: EventsConfig{QueueSize: 64, ReplayDepth: 20},
		Exec:   ExecConfig{Timeout: Duration(30 * time.Second)},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads the configuration. Search order when path is empty:
// ./deckhand.yaml, $XDG_CONFIG_HOME/deckhand/deckhand.yaml,
// /etc/deckhand/deckhand.yaml. A missing file yields the defaults; a present
// but invalid file fails startup. A .env file in the working directory is
// loaded first so DECKHAND_* overrides apply either way.
func Load(path string) (Config, error) {
	// Best effort: absence of a .env file is the normal case.
	_ = godotenv.Load()

	cfg := Default()

	resolved := path
	if resolved == "" {
		resolved = discover()
	}
	if resolved != "" {
		data, err := os.ReadFile(resolved)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", resolved, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", resolved, err)
		}
		logger.Debug("configuration loaded", "path", resolved)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func discover() string {
	candidates := []string{"deckhand.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "deckhand", "deckhand.yaml"))
	}
	candidates = append(candidates, "/etc/deckhand/deckhand.yaml")

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DECKHAND_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("DECKHAND_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate rejects configurations that cannot run. Policy pattern rules are
// compiled (and therefore validated) when the policy engine is built.
func (c Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	if c.Inventory.RefreshInterval.Std() <= 0 {
		return fmt.Errorf("inventory.refresh_interval must be positive")
	}
	if c.Metrics.SampleInterval.Std() <= 0 {
		return fmt.Errorf("metrics.sample_interval must be positive")
	}
	if c.Metrics.Retention.Std() < c.Metrics.SampleInterval.Std() {
		return fmt.Errorf("metrics.retention must be at least one sample interval")
	}
	if c.Events.QueueSize <= 0 {
		return fmt.Errorf("events.queue_size must be positive")
	}
	if c.Events.ReplayDepth < 0 {
		return fmt.Errorf("events.replay must not be negative")
	}
	if c.Exec.Timeout.Std() <= 0 {
		return fmt.Errorf("exec.timeout must be positive")
	}
	for _, rule := range c.Exec.Policy.Deny {
		switch rule.Kind {
		case "token", "prefix", "pattern":
		default:
			return fmt.Errorf("exec.policy.deny: unknown rule kind %q", rule.Kind)
		}
		if rule.Value == "" {
			return fmt.Errorf("exec.policy.deny: rule value must not be empty")
		}
	}
	return nil
}
