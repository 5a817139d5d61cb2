package webhooks

import (
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/models"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/repositories"
)

// StatsAggregator computes delivery success and failure figures on demand.
// Read only.
type StatsAggregator struct {
	deliveries *repositories.DeliveryRepository
}

func NewStatsAggregator(deliveries *repositories.DeliveryRepository) *StatsAggregator {
	return &StatsAggregator{deliveries: deliveries}
}

// Stats returns counts and success rate, scoped to one config when configID
// is non-empty, global otherwise.
func (a *StatsAggregator) Stats(configID string) (*models.DeliveryStats, error) {
	return a.deliveries.Stats(configID)
}
