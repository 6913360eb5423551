package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/solatis/waypoint/internal/core/auth"
	"github.com/solatis/waypoint/internal/core/config"
	"github.com/solatis/waypoint/internal/core/db"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key; the key is printed once and never stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		client, _ := cmd.Flags().GetString("client")
		secretID, _ := cmd.Flags().GetString("secret-id")
		if client == "" {
			return fmt.Errorf("--client required")
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		secrets, err := config.HMACSecrets()
		if err != nil {
			return fmt.Errorf("failed to load HMAC secrets: %w", err)
		}
		if len(secrets) == 0 {
			return fmt.Errorf("no HMAC secrets configured (set WP_HMAC_SECRET environment variable)")
		}
		if secretID == "" {
			// newest secret id sorts last (UUIDv7)
			ids := make([]string, 0, len(secrets))
			for id := range secrets {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			secretID = ids[len(ids)-1]
		}
		secret, ok := secrets[secretID]
		if !ok {
			return fmt.Errorf("unknown secret id %s", secretID)
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

		key, hash, err := auth.GenerateAPIKey(secretID, secret)
		if err != nil {
			return err
		}
		id, err := db.InsertAPIKey(ctx, queries, client, hash, secretID)
		if err != nil {
			return err
		}
		logger.Info("api key created", "api_key_id", id, "client_name", client, "secret_id", secretID)
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <api-key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
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
		queries, err := db.LoadQueries(database)
		if err != nil {
			return err
		}

		if err := db.RevokeAPIKey(ctx, queries, args[0]); err != nil {
			return err
		}
		logger.Info("api key revoked", "api_key_id", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysCreateCmd, keysRevokeCmd)
	keysCreateCmd.Flags().String("client", "", "client name the key is issued to")
	keysCreateCmd.Flags().String("secret-id", "", "HMAC secret id (default: newest configured secret)")
}
