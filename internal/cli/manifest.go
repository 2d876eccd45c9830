package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"ServicerFeed/internal/config"
	"ServicerFeed/internal/database"
	"ServicerFeed/internal/manifest"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const LimitFlag = "limit"

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Shows the most recent ingestion manifest entries",
	RunE:  showManifest,
}

func init() {
	bindFlagAndEnvVar(manifestCmd, LimitFlag, 50, "Maximum entries to show", "")
	manifestCmd.Flags().BoolP("help", "h", false, "Help for manifest")
	rootCmd.AddCommand(manifestCmd)
}

func showManifest(c *cobra.Command, _ []string) error {
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

	entries, err := manifest.NewLedger(db).List(ctx, viper.GetInt(LimitFlag))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILENAME\tKIND\tAS OF\tSTATUS\tREAD\tINSERTED\tSKIPPED\tDOWNLOADED\tERRORS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			e.Filename, e.Kind, e.AsOfDate, e.Status,
			e.RowsRead, e.RowsInserted, e.RowsSkipped,
			e.DownloadedAt.Format("2006-01-02 15:04"),
			strings.Join(e.Errors, "; "))
	}
	return w.Flush()
}
