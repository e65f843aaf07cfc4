package main

import (
	"context"
	"log/slog"
	"time"
)

type sessionPurger interface {
	PurgeExpired() error
}

// purgeExpiredSessions sweeps the session store on an interval until ctx is
// cancelled. A nil purger or non-positive interval disables the sweep while
// still blocking until cancellation so the caller's group stays balanced.
func purgeExpiredSessions(ctx context.Context, logger *slog.Logger, sessions sessionPurger, interval time.Duration) error {
	if sessions == nil || interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := sessions.PurgeExpired(); err != nil && logger != nil {
				logger.Error("failed to purge expired sessions", "error", err)
			}
		}
	}
}
