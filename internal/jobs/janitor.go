package jobs

import (
	"context"
	"log/slog"
	"time"
)

// StartJanitor launches a background sweeper that removes terminal jobs
// older than maxAge, checking every interval. It stops when ctx is
// canceled. Abandoned jobs run to completion and expire here; there is no
// explicit cancellation.
func (s *Store) StartJanitor(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.sweep(maxAge); removed > 0 {
					slog.Debug("Swept expired jobs", "removed", removed)
				}
			}
		}
	}()
}
