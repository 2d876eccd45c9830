package cli

import (
	"context"

	"ServicerFeed/internal/config"
	"ServicerFeed/internal/database"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Applies pending database migrations",
	RunE: func(c *cobra.Command, _ []string) error {
		c.SilenceUsage = true
		ctx := context.Background()

		dbURL := config.DatabaseURL()
		if dbURL == "" {
			return errors.New("database not configured: set DATABASE_URL or DB_HOST/DB_USER/DB_PASSWORD/DB_NAME")
		}
		db, err := database.ConnectSQL(ctx, dbURL)
		if err != nil {
			return err
		}
		defer db.Close()

		return database.RunMigrations(ctx, db)
	},
}

func init() {
	migrateCmd.Flags().BoolP("help", "h", false, "Help for migrate")
	rootCmd.AddCommand(migrateCmd)
}
