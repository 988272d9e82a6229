package service

import (
	"context"
	"time"

	"cutnpaste/api/internal/store"

	"go.uber.org/zap"
)

// ExpirySweep periodically deletes verification codes and sessions that
// are past their expiry. Validation checks expiry on use, so this is
// garbage collection of orphaned rows, not an enforcement mechanism.
func ExpirySweep(t time.Duration, s store.Store) {
	ticker := time.NewTicker(t)

	zap.L().Debug("Expiry sweep attached", zap.Duration("tick_every", t))

	go func() {
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
			now := time.Now()

			codes, err := s.DeleteExpiredCodes(ctx, now)
			if err != nil {
				zap.L().Error("Failed to sweep expired verification codes", zap.Error(err))
			}

			sessions, err := s.DeleteExpiredSessions(ctx, now)
			if err != nil {
				zap.L().Error("Failed to sweep expired sessions", zap.Error(err))
			}

			cancel()

			if codes > 0 || sessions > 0 {
				zap.L().Debug("Expiry sweep finished",
					zap.Int64("codes", codes),
					zap.Int64("sessions", sessions),
				)
			}
		}
	}()
}
