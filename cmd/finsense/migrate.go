package main

import (
	"fmt"

	"github.com/dvloznov/finsense/internal/app"
	"github.com/dvloznov/finsense/internal/config"
	infraBQ "github.com/dvloznov/finsense/internal/infra/bigquery"
	"github.com/spf13/cobra"
)

var appliedBy string

func init() {
	migrateCmd.Flags().StringVar(&appliedBy, "applied-by", "finsense-cli", "name recorded with applied BigQuery migrations")
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations to the configured storage",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	switch cfg.Storage.Driver {
	case config.DriverBigQuery:
		store, err := infraBQ.NewStore(ctx, cfg.Storage.BigQueryProject, cfg.Storage.BigQueryDataset)
		if err != nil {
			return err
		}
		defer store.Close()

		applied, err := store.Migrate(ctx, appliedBy)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %d BigQuery migration(s) to %s.%s\n",
			applied, cfg.Storage.BigQueryProject, cfg.Storage.BigQueryDataset)
	default:
		// Opening the sqlite store applies its migrations.
		db, err := app.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "SQLite schema at %s is up to date\n", cfg.Storage.SQLitePath)
	}
	return nil
}
