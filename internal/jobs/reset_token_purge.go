package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mrpavithran/SmartCanteen/internal/config"
	"github.com/mrpavithran/SmartCanteen/internal/repository"
)

// StartResetTokenPurgeJob periodically removes expired password reset
// tokens from the database fallback table. When Redis backs reset tokens
// they expire on their own and this job finds nothing to do.
func StartResetTokenPurgeJob(ctx context.Context, cfg config.Config, store *repository.Store, log *zap.Logger) {
	if !cfg.ResetPurgeEnabled {
		return
	}
	interval := cfg.ResetPurgeInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				purged, err := store.PurgeExpiredResetTokens(tickCtx, time.Now().UTC())
				cancel()
				if err != nil {
					log.Warn("reset token purge failed", zap.Error(err))
					continue
				}
				if purged > 0 {
					log.Info("purged expired reset tokens", zap.Int64("count", purged))
				}
			}
		}
	}()
}
