package jobs

import (
	"math"
	"time"

	"ServicerFeed/internal/logger"

	"github.com/pkg/errors"
)

// RetryWithBackoff executes fn with exponential backoff between attempts.
func RetryWithBackoff(maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * initialDelay
			logger.Audit("retrying after %v (attempt %d/%d)", delay, attempt, maxRetries)
			time.Sleep(delay)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		logger.Warn("attempt %d failed: %v", attempt+1, lastErr)
	}

	return errors.Wrapf(lastErr, "failed after %d attempts", maxRetries+1)
}
