package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ServicerFeed/internal/config"
	"ServicerFeed/internal/ingest"
	"ServicerFeed/internal/jobs"
	"ServicerFeed/internal/logger"
	"ServicerFeed/internal/ops"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	ScheduleFlag   = "schedule"
	TimezoneFlag   = "timezone"
	ListenAddrFlag = "listen-addr"

	ScheduleKey   = "INGEST_SCHEDULE"
	TimezoneKey   = "INGEST_TIMEZONE"
	ListenAddrKey = "OPS_LISTEN_ADDR"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs ingestion on a cron schedule with operational endpoints",
	Long: `Starts a long-running process that executes an ingestion pass on the
configured cron schedule and serves /health and /manifest over HTTP.`,
	RunE: serve,
}

func init() {
	bindFlagAndEnvVar(serveCmd, ScheduleFlag, config.DefaultIngestSchedule, fmt.Sprintf("Cron expression for scheduled ingestion [$%s]", ScheduleKey), ScheduleKey)
	bindFlagAndEnvVar(serveCmd, TimezoneFlag, config.DefaultTimeZone, fmt.Sprintf("Timezone for the schedule [$%s]", TimezoneKey), TimezoneKey)
	bindFlagAndEnvVar(serveCmd, ListenAddrFlag, config.DefaultOpsListenAddr, fmt.Sprintf("Listen address for the ops endpoints [$%s]", ListenAddrKey), ListenAddrKey)

	serveCmd.Flags().BoolP("help", "h", false, "Help for serve")
	rootCmd.AddCommand(serveCmd)
}

func serve(c *cobra.Command, _ []string) error {
	c.SilenceUsage = true
	ctx := context.Background()

	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	runOnce := func() error {
		sum, err := runLocked(ctx, rt, ingest.Options{BatchSize: viper.GetInt(BatchSizeFlag)})
		if err != nil {
			return err
		}
		logger.Audit("scheduled run %s: %d processed, %d skipped, %d failed, %d rows inserted",
			sum.RunID, sum.FilesProcessed, sum.FilesSkipped, sum.FilesFailed, sum.RowsInserted)
		if sum.Failed() {
			logger.Error("scheduled run %s had %d failed file(s)", sum.RunID, sum.FilesFailed)
		}
		return nil
	}

	cron, err := jobs.StartIngestCron(viper.GetString(ScheduleFlag), viper.GetString(TimezoneFlag), runOnce)
	if err != nil {
		return err
	}
	defer cron.Stop()

	srv := ops.NewServer(rt.sqlDB, rt.ledger).Start(viper.GetString(ListenAddrFlag))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Audit("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
