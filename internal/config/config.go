package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `json:"database"  envPrefix:"SCHEMA_CHAT_"`
	LLM       LLMConfig       `json:"llm"       envPrefix:"SCHEMA_CHAT_"`
	Embedding EmbeddingConfig `json:"embedding" envPrefix:"SCHEMA_CHAT_"`
	Agent     AgentConfig     `json:"agent"     envPrefix:"SCHEMA_CHAT_"`
	Logging   LoggingConfig   `json:"logging"   envPrefix:"SCHEMA_CHAT_"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver       string `json:"driver"        env:"DB_DRIVER"        envDefault:"sqlite"` // sqlite, duckdb
	Path         string `json:"path"          env:"DB_PATH"          envDefault:"schools.db"`
	MaxOpenConns int    `json:"max_open_conns" env:"DB_MAX_OPEN_CONNS" envDefault:"4"`
	QueryTimeout string `json:"query_timeout" env:"DB_QUERY_TIMEOUT" envDefault:"30s"`
}

// LLMConfig represents chat-model backend configuration
type LLMConfig struct {
	Provider string `json:"provider" env:"LLM_PROVIDER" envDefault:"deepseek"` // openai, deepseek, ollama
	Model    string `json:"model"    env:"LLM_MODEL"`
	APIKey   string `json:"-"        env:"LLM_API_KEY"`
	BaseURL  string `json:"base_url" env:"LLM_BASE_URL"`
}

// EmbeddingConfig represents embedding backend configuration
type EmbeddingConfig struct {
	Provider   string `json:"provider"   env:"EMBEDDING_PROVIDER"   envDefault:"ollama"` // ollama, openai
	Model      string `json:"model"      env:"EMBEDDING_MODEL"      envDefault:"nomic-embed-text"`
	APIKey     string `json:"-"          env:"EMBEDDING_API_KEY"`
	BaseURL    string `json:"base_url"   env:"EMBEDDING_BASE_URL"`
	Dimensions int    `json:"dimensions" env:"EMBEDDING_DIMENSIONS" envDefault:"768"`
}

// AgentConfig represents agent execution configuration
type AgentConfig struct {
	Mode         string `json:"mode"           env:"AGENT_MODE"           envDefault:"invoke"` // invoke, stream
	RowLimit     int    `json:"row_limit"      env:"AGENT_ROW_LIMIT"      envDefault:"5"`
	MaxToolSteps int    `json:"max_tool_steps" env:"AGENT_MAX_TOOL_STEPS" envDefault:"1000"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stderr"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:"~/.config/schema-chat/logs/app.log"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := &Config{}

	// Load from config file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply environment variable overrides (also sets defaults)
	if err := env.ParseWithOptions(config, env.Options{
		Prefix: "SCHEMA_CHAT_",
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if flagOverrides != nil {
		applyFlagOverrides(config, flagOverrides)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.Database.Path = expandPath(config.Database.Path)
	config.Logging.File = expandPath(config.Logging.File)

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "db":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Path = str
			}
		case "driver":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Driver = str
			}
		case "provider":
			if str, ok := value.(string); ok && str != "" {
				config.LLM.Provider = str
			}
		case "model":
			if str, ok := value.(string); ok && str != "" {
				config.LLM.Model = str
			}
		case "mode":
			if str, ok := value.(string); ok && str != "" {
				config.Agent.Mode = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		}
	}
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validDrivers := map[string]bool{"sqlite": true, "duckdb": true}
	if !validDrivers[strings.ToLower(config.Database.Driver)] {
		return fmt.Errorf("invalid database driver: %s (must be sqlite or duckdb)", config.Database.Driver)
	}

	validProviders := map[string]bool{"openai": true, "deepseek": true, "ollama": true}
	if !validProviders[strings.ToLower(config.LLM.Provider)] {
		return fmt.Errorf(
			"invalid LLM provider: %s (must be openai, deepseek, or ollama)",
			config.LLM.Provider,
		)
	}

	validEmbedders := map[string]bool{"ollama": true, "openai": true}
	if !validEmbedders[strings.ToLower(config.Embedding.Provider)] {
		return fmt.Errorf(
			"invalid embedding provider: %s (must be ollama or openai)",
			config.Embedding.Provider,
		)
	}

	validModes := map[string]bool{"invoke": true, "stream": true}
	if !validModes[strings.ToLower(config.Agent.Mode)] {
		return fmt.Errorf("invalid agent mode: %s (must be invoke or stream)", config.Agent.Mode)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{"stdout": true, "stderr": true, "file": true}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	if _, err := time.ParseDuration(config.Database.QueryTimeout); err != nil {
		return fmt.Errorf("invalid database query timeout: %s", config.Database.QueryTimeout)
	}

	if config.Agent.RowLimit <= 0 {
		return fmt.Errorf("agent row limit must be positive: %d", config.Agent.RowLimit)
	}

	if config.Agent.MaxToolSteps <= 0 {
		return fmt.Errorf("agent max tool steps must be positive: %d", config.Agent.MaxToolSteps)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("SCHEMA_CHAT_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "schema-chat", "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// QueryTimeoutDuration returns the parsed database query timeout
func (c *Config) QueryTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Database.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}

	return d
}
