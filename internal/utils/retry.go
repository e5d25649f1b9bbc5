package utils

import (
	"context"
	"fmt"
	"time"

	"iotmon/internal/logging"
)

// Retry calls fn up to maxAttempts times, sleeping delay between failures.
// A cancelled ctx stops the loop early and returns the last error.
func Retry(ctx context.Context, logger *logging.Logger, maxAttempts int, delay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err
			logger.Errorf("Attempt %d/%d failed: %v", attempt, maxAttempts, err)
			if attempt == maxAttempts {
				break
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("aborted after %d attempts: %w", attempt, lastErr)
			case <-time.After(delay):
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}
