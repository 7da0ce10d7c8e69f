package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/edstats/schema-chat/internal/database"
	"github.com/edstats/schema-chat/internal/logging"
	"github.com/edstats/schema-chat/internal/schema"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the tables and column descriptions the agent can see",
	Long: `List the user-queryable tables in the configured database, with how many
described columns each one has. The reserved metadata table is excluded,
exactly as the agent sees it.`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	db, err := database.Open(
		cfg.Database.Driver,
		cfg.Database.Path,
		cfg.Database.MaxOpenConns,
		cfg.QueryTimeoutDuration(),
	)
	if err != nil {
		return err
	}
	defer db.Close()

	tables, err := db.ListUsableTables(ctx)
	if err != nil {
		return err
	}

	loader := schema.NewLoader(db, logging.GetLogger())
	descriptions := loader.LoadDescriptions(ctx)

	fmt.Printf("Database: %s (%s)\n\n", cfg.Database.Path, db.Dialect())

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Table", "Described columns"})

	for i, name := range tables {
		t.AppendRow(table.Row{i + 1, name, len(descriptions[name])})
	}

	t.AppendFooter(table.Row{"", "Total", len(tables)})
	t.SetStyle(table.StyleLight)
	t.Render()

	return nil
}
