package workers

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/moleary1107/etownz-grants-sub006/internal/engine/webhooks"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/repositories"
)

// RunRetrySweep drives the retry scheduler at a fixed interval. Blocks until
// stop is closed.
func RunRetrySweep(scheduler *webhooks.Scheduler, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("retry sweep worker started")

	for {
		select {
		case <-ticker.C:
			scheduler.ProcessRetries()
		case <-stop:
			log.Info().Msg("retry sweep worker stopped")
			return
		}
	}
}

// RunRetentionPurge deletes terminal deliveries older than the retention
// window once a day. Housekeeping only; it never touches retryable rows.
func RunRetentionPurge(deliveries *repositories.DeliveryRepository, retentionDays int, stop <-chan struct{}) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	log.Info().Int("retention_days", retentionDays).Msg("retention purge worker started")

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -retentionDays).Unix()
			purged, err := deliveries.PurgeOlderThan(cutoff)
			if err != nil {
				log.Error().Err(err).Msg("retention purge failed")
				continue
			}
			if purged > 0 {
				log.Info().Int64("purged", purged).Msg("purged old webhook deliveries")
			}
		case <-stop:
			log.Info().Msg("retention purge worker stopped")
			return
		}
	}
}
