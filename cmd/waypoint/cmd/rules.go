package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/waypoint/internal/core/db"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage navigation rules stored in the database",
}

var rulesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the stored rules with navigation.rules from --config",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if configFile == "" {
			return fmt.Errorf("--config required")
		}

		database, err := openDatabase(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer database.Close()

		queries, err := db.LoadQueries(database)
		if err != nil {
			return err
		}

		declared := cfg.Navigation.NavigationRules()
		if err := db.ImportRules(ctx, queries, declared); err != nil {
			return fmt.Errorf("failed to import rules: %w", err)
		}
		logger.Info("navigation rules imported", "rules", len(declared))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesImportCmd)
}
