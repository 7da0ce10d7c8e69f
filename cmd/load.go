package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/edstats/schema-chat/internal/database"
	"github.com/edstats/schema-chat/internal/errors"
	"github.com/edstats/schema-chat/internal/ingest"
	"github.com/edstats/schema-chat/internal/logging"
)

var loadReset bool

var loadCmd = &cobra.Command{
	Use:   "load <scorecard.csv>",
	Short: "Create the schema and load a scorecard CSV export",
	Long: `Create the education-statistics tables (plus the column-description
metadata table) in the configured database and load rows from a College
Scorecard CSV export. Rows that fail to insert are logged and skipped.

Examples:
  schema-chat load Most-Recent-Cohorts.csv
  schema-chat load --reset Most-Recent-Cohorts.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().BoolVar(&loadReset, "reset", false, "Delete the database file before loading")

	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if loadReset {
		if err := os.Remove(cfg.Database.Path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, errors.ErrTypeIngest, "failed to remove existing database")
		}
	}

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

	ctx := cmd.Context()
	loader := ingest.NewLoader(db, logging.GetLogger())

	if err := loader.CreateTables(ctx); err != nil {
		return err
	}

	stats, err := loader.LoadCSV(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %s into %s\n\n", args[0], cfg.Database.Path)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendRows([]table.Row{
		{"Rows read", stats.RowsRead},
		{"Rows inserted", stats.RowsInserted},
		{"Rows failed", stats.RowsFailed},
	})
	t.SetStyle(table.StyleLight)
	t.Render()

	return nil
}
