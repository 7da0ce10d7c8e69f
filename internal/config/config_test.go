package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "invoke", cfg.Agent.Mode)
	assert.Equal(t, 5, cfg.Agent.RowLimit)
	assert.Equal(t, 1000, cfg.Agent.MaxToolSteps)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SCHEMA_CHAT_DB_DRIVER", "duckdb")
	t.Setenv("SCHEMA_CHAT_LLM_PROVIDER", "openai")
	t.Setenv("SCHEMA_CHAT_AGENT_MODE", "stream")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Database.Driver)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "stream", cfg.Agent.Mode)
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	cfg, err := LoadConfigWithOverrides(map[string]interface{}{
		"db":       "/tmp/other.db",
		"provider": "ollama",
		"mode":     "stream",
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "stream", cfg.Agent.Mode)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid driver",
			mutate:  func(c *Config) { c.Database.Driver = "postgres" },
			wantErr: "invalid database driver",
		},
		{
			name:    "invalid provider",
			mutate:  func(c *Config) { c.LLM.Provider = "cohere" },
			wantErr: "invalid LLM provider",
		},
		{
			name:    "invalid mode",
			mutate:  func(c *Config) { c.Agent.Mode = "batch" },
			wantErr: "invalid agent mode",
		},
		{
			name:    "invalid timeout",
			mutate:  func(c *Config) { c.Database.QueryTimeout = "soon" },
			wantErr: "invalid database query timeout",
		},
		{
			name:    "non-positive row limit",
			mutate:  func(c *Config) { c.Agent.RowLimit = 0 },
			wantErr: "row limit must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = validateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestQueryTimeoutDuration(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.QueryTimeoutDuration())
}
