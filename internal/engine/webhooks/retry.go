package webhooks

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/moleary1107/etownz-grants-sub006/internal/platform/config"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/models"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/repositories"
)

// Backoff schedule between failed attempts: 1m, 5m, 30m, 2h. Indexed by the
// number of failures already recorded against the delivery.
var retryBackoff = [...]time.Duration{
	time.Minute,
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
}

// MaxAttempts is the total attempt budget per delivery. A delivery whose
// attempt count reaches it is permanently failed and never retried.
const MaxAttempts = len(retryBackoff)

// RetryDelay returns the backoff delay for a delivery with attemptCount
// recorded failures, or false once the attempt budget is exhausted.
func RetryDelay(attemptCount int) (time.Duration, bool) {
	if attemptCount < 0 || attemptCount >= MaxAttempts {
		return 0, false
	}
	return retryBackoff[attemptCount], true
}

func nextRetryAt(attemptCount int) *int64 {
	delay, ok := RetryDelay(attemptCount)
	if !ok {
		return nil
	}
	at := time.Now().Add(delay).Unix()
	return &at
}

// Scheduler re-queues failed deliveries. It owns no state of its own;
// durability of the retry queue comes entirely from the persisted
// next_retry_at column, so any process can pick up a sweep after a crash.
type Scheduler struct {
	deliveries   *repositories.DeliveryRepository
	dispatcher   *Dispatcher
	batchSize    int
	attemptDelay time.Duration
}

func NewScheduler(deliveries *repositories.DeliveryRepository, dispatcher *Dispatcher, cfg config.WebhooksConfig) *Scheduler {
	return &Scheduler{
		deliveries:   deliveries,
		dispatcher:   dispatcher,
		batchSize:    cfg.RetryBatchSize,
		attemptDelay: cfg.AttemptDelay,
	}
}

// ScheduleRetry computes the next attempt time for a delivery based on its
// recorded attempt count. Returns nil when retries are exhausted.
func (s *Scheduler) ScheduleRetry(delivery *models.WebhookDelivery) *int64 {
	return nextRetryAt(delivery.AttemptCount)
}

// DueForRetry loads the batch of deliveries whose retry time has passed.
func (s *Scheduler) DueForRetry() ([]*models.WebhookDelivery, error) {
	return s.deliveries.FindDueRetries(s.batchSize, MaxAttempts)
}

// ProcessRetries re-attempts the due batch sequentially, pausing briefly
// between attempts so a struggling subscriber is not hammered. Invoked by
// the worker at a fixed interval.
func (s *Scheduler) ProcessRetries() {
	batch, err := s.DueForRetry()
	if err != nil {
		log.Error().Err(err).Msg("failed to load due webhook retries")
		return
	}
	if len(batch) == 0 {
		return
	}

	log.Info().Int("count", len(batch)).Msg("processing webhook retries")

	for i, delivery := range batch {
		if i > 0 {
			time.Sleep(s.attemptDelay)
		}
		s.dispatcher.Deliver(delivery, nil)
	}
}
