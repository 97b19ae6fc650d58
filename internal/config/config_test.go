package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deckhand.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingNamedFile(t *testing.T) {
	// An explicitly named file that does not exist is an error, unlike
	// discovery finding nothing.
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8085", cfg.Server.Listen)
	assert.Equal(t, 10*time.Second, cfg.Inventory.RefreshInterval.Std())
	assert.Equal(t, time.Minute, cfg.Metrics.SampleInterval.Std())
	assert.Equal(t, time.Hour, cfg.Metrics.Retention.Std())
	assert.False(t, cfg.Metrics.PerContainer)
	assert.Equal(t, 64, cfg.Events.QueueSize)
	assert.Equal(t, 20, cfg.Events.ReplayDepth)
	assert.Equal(t, 30*time.Second, cfg.Exec.Timeout.Std())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: ":9090"
inventory:
  refresh_interval: 5s
metrics:
  sample_interval: 30s
  retention: 2h
  per_container: true
events:
  queue_size: 128
  replay: 50
exec:
  timeout: 10s
  policy:
    deny:
      - kind: token
        value: mkfs
      - kind: pattern
        value: rm\s+-rf
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, 5*time.Second, cfg.Inventory.RefreshInterval.Std())
	assert.Equal(t, 15*time.Second, cfg.Inventory.RuntimeTimeout.Std(), "unset fields keep defaults")
	assert.Equal(t, 30*time.Second, cfg.Metrics.SampleInterval.Std())
	assert.Equal(t, 2*time.Hour, cfg.Metrics.Retention.Std())
	assert.True(t, cfg.Metrics.PerContainer)
	assert.Equal(t, 128, cfg.Events.QueueSize)
	assert.Equal(t, 50, cfg.Events.ReplayDepth)
	require.Len(t, cfg.Exec.Policy.Deny, 2)
	assert.Equal(t, "token", cfg.Exec.Policy.Deny[0].Kind)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "inventory:\n  refresh_interval: soon\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DECKHAND_LISTEN", ":7070")
	t.Setenv("DECKHAND_LOG_LEVEL", "warn")

	path := writeConfig(t, "server:\n  listen: \":9090\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Listen, "environment wins over the file")
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen", func(c *Config) { c.Server.Listen = "" }},
		{"zero refresh", func(c *Config) { c.Inventory.RefreshInterval = 0 }},
		{"zero sample interval", func(c *Config) { c.Metrics.SampleInterval = 0 }},
		{"retention below cadence", func(c *Config) { c.Metrics.Retention = Duration(time.Second) }},
		{"zero queue", func(c *Config) { c.Events.QueueSize = 0 }},
		{"negative replay", func(c *Config) { c.Events.ReplayDepth = -1 }},
		{"zero exec timeout", func(c *Config) { c.Exec.Timeout = 0 }},
		{"unknown rule kind", func(c *Config) {
			c.Exec.Policy.Deny = []PolicyRule{{Kind: "glob", Value: "*"}}
		}},
		{"empty rule value", func(c *Config) {
			c.Exec.Policy.Deny = []PolicyRule{{Kind: "token", Value: ""}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
