// Package cmd wires the CLI surface: an interactive chat REPL, a one-shot
// ask command, a CSV loader, and a database info view.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/edstats/schema-chat/internal/config"
	"github.com/edstats/schema-chat/internal/logging"
)

var (
	flagDB       string
	flagDriver   string
	flagProvider string
	flagModel    string
	flagMode     string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "schema-chat",
	Short: "Chat with an education-statistics database in natural language",
	Long: `schema-chat answers natural-language questions about a local education
statistics database. It embeds the database schema into a semantic index,
retrieves the tables relevant to each question, and drives a tool-calling
language model that writes and runs the SQL for you.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI
func Execute() error {
	ctx := context.Background()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Path to the database file")
	rootCmd.PersistentFlags().StringVar(&flagDriver, "driver", "", "Database driver: sqlite or duckdb")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "LLM provider: openai, deepseek, or ollama")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "Model name for the LLM provider")
	rootCmd.PersistentFlags().StringVar(&flagMode, "mode", "", "Agent mode: invoke or stream")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, or error")
}

// loadConfig resolves configuration from file, environment, and flags, and
// initializes the global logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithOverrides(map[string]interface{}{
		"db":        flagDB,
		"driver":    flagDriver,
		"provider":  flagProvider,
		"model":     flagModel,
		"mode":      flagMode,
		"log-level": flagLogLevel,
	})
	if err != nil {
		return nil, err
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		return nil, err
	}

	return cfg, nil
}
