package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/solatis/waypoint/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer database.Close()

		applied, err := db.MigrateUp(ctx, database)
		for _, id := range applied {
			logger.Info("migration applied", "migration_id", id)
		}
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			logger.Info("database is up to date")
		}
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer database.Close()

		statuses, err := db.MigrateStatus(ctx, database)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MIGRATION\tSTATUS\tAPPLIED AT\tDURATION")
		for _, s := range statuses {
			if !s.Applied {
				fmt.Fprintf(w, "%s\tpending\t-\t-\n", s.ID)
				continue
			}
			fmt.Fprintf(w, "%s\tapplied\t%s\t%dms\n", s.ID, s.AppliedAt.Format(time.RFC3339), s.ExecutionMs)
		}
		return w.Flush()
	},
}

// openDatabase opens the database without checking migrations.
func openDatabase(ctx context.Context, url string) (*sqlx.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("--db-url or WP_DATABASE_URL required")
	}
	return db.Open(ctx, url)
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
}
