package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"ServicerFeed/internal/config"
	"ServicerFeed/internal/ingest"
	"ServicerFeed/internal/logger"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	KindFlag        = "kind"
	LatestOnlyFlag  = "latest-only"
	BatchSizeFlag   = "batch-size"
	DryRunFlag      = "dry-run"
	ReportSkipsFlag = "report-skips"
	ForceFlag       = "force"

	KindKey       = "INGEST_KIND"
	LatestOnlyKey = "INGEST_LATEST_ONLY"
	BatchSizeKey  = "INGEST_BATCH_SIZE"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Runs one ingestion pass against the servicer's FTPS drop",
	Long: `Lists the remote directory, classifies filenames into feed kinds,
downloads files not yet recorded in the manifest, normalizes them, and loads
rows into the raw landing tables.`,
	RunE: runIngest,
}

func init() {
	bindFlagAndEnvVar(ingestCmd, KindFlag, "", fmt.Sprintf("Restrict the run to one feed kind or alias [$%s]", KindKey), KindKey)
	bindFlagAndEnvVar(ingestCmd, LatestOnlyFlag, false, fmt.Sprintf("Process only the most recent remote file per kind [$%s]", LatestOnlyKey), LatestOnlyKey)
	bindFlagAndEnvVar(ingestCmd, BatchSizeFlag, config.DefaultBatchSize, fmt.Sprintf("Rows per insert batch [$%s]", BatchSizeKey), BatchSizeKey)
	bindFlagAndEnvVar(ingestCmd, DryRunFlag, false, "Classify, normalize, and dedup-check without writing anything", "")
	bindFlagAndEnvVar(ingestCmd, ReportSkipsFlag, false, "Include per-row skip details in the summary", "")
	bindFlagAndEnvVar(ingestCmd, ForceFlag, false, "Reprocess files already recorded as completed", "")

	ingestCmd.Flags().BoolP("help", "h", false, "Help for ingest")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(c *cobra.Command, _ []string) error {
	c.SilenceUsage = true
	ctx := context.Background()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	sum, err := runLocked(ctx, rt, ingest.Options{
		Kind:        viper.GetString(KindFlag),
		LatestOnly:  viper.GetBool(LatestOnlyFlag),
		BatchSize:   viper.GetInt(BatchSizeFlag),
		DryRun:      viper.GetBool(DryRunFlag),
		ReportSkips: viper.GetBool(ReportSkipsFlag),
		Force:       viper.GetBool(ForceFlag),
	})
	if err != nil {
		return err
	}

	printSummary(c.OutOrStdout(), sum)
	if sum.Failed() {
		return errors.Errorf("%d file(s) failed", sum.FilesFailed)
	}
	return nil
}

// runLocked takes the run-wide advisory lock before running; a second
// concurrent run fails fast instead of waiting.
func runLocked(ctx context.Context, rt *runtime, opts ingest.Options) (ingest.Summary, error) {
	ok, release, err := rt.ledger.AcquireRunLock(ctx)
	if err != nil {
		return ingest.Summary{}, err
	}
	if !ok {
		return ingest.Summary{}, errors.New("another ingestion run is already in progress")
	}
	defer release()

	logger.Audit("ingestion run starting")
	return rt.service.Run(ctx, opts)
}

func printSummary(w io.Writer, sum ingest.Summary) {
	fmt.Fprintf(w, "run %s\n", sum.RunID)
	fmt.Fprintf(w, "files: %d processed, %d skipped, %d failed, %d unclassified\n",
		sum.FilesProcessed, sum.FilesSkipped, sum.FilesFailed, sum.FilesUnclassified)
	fmt.Fprintf(w, "rows:  %d read, %d inserted, %d skipped\n",
		sum.RowsRead, sum.RowsInserted, sum.RowsSkipped)
	for _, warn := range sum.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	for _, fail := range sum.Failures {
		fmt.Fprintf(os.Stderr, "failure: %s\n", fail)
	}
}
