package jobs

import (
	"time"

	"ServicerFeed/internal/logger"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// StartIngestCron schedules runOnce on the given cron expression. Transient
// failures get a bounded backoff retry inside one slot; overlapping slots
// are already excluded by the ledger's advisory lock, so a hung run cannot
// be doubled by the next tick.
func StartIngestCron(schedule, timezone string, runOnce func() error) (*cron.Cron, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid timezone %q", timezone)
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(schedule, func() {
		logger.Audit("scheduled ingestion starting at %s", time.Now().In(loc))
		err := RetryWithBackoff(2, 30*time.Second, runOnce)
		if err != nil {
			logger.Error("scheduled ingestion failed: %v", err)
			return
		}
		logger.Audit("scheduled ingestion completed at %s", time.Now().In(loc))
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scheduling ingestion on %q", schedule)
	}

	c.Start()
	logger.Audit("ingestion scheduled for %q (%s)", schedule, timezone)
	return c, nil
}
