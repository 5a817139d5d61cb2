package webhooks

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/moleary1107/etownz-grants-sub006/internal/platform/config"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/models"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/repositories"
)

// deliveryPayload is the wire body POSTed to subscriber endpoints.
type deliveryPayload struct {
	EventType string         `json:"event_type"`
	Timestamp string         `json:"timestamp"`
	Data      interface{}    `json:"data"`
	Webhook   payloadWebhook `json:"webhook"`
}

type payloadWebhook struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EventRouter fans an internal event out to every subscribed config. Each
// matched config gets its own persisted delivery and its own dispatch
// goroutine, bounded by a shared semaphore, so one slow endpoint cannot
// starve the others. Triggering is fire-and-forget: no per-subscriber
// failure ever reaches the domain code that emitted the event.
type EventRouter struct {
	configs    *repositories.WebhookConfigRepository
	deliveries *repositories.DeliveryRepository
	dispatcher *Dispatcher
	sem        chan struct{}
}

func NewEventRouter(configs *repositories.WebhookConfigRepository, deliveries *repositories.DeliveryRepository, dispatcher *Dispatcher, cfg config.WebhooksConfig) *EventRouter {
	return &EventRouter{
		configs:    configs,
		deliveries: deliveries,
		dispatcher: dispatcher,
		sem:        make(chan struct{}, cfg.WorkerCount),
	}
}

// TriggerEvent fans out the event and returns once dispatch is initiated.
// HTTP attempts complete in the background.
func (r *EventRouter) TriggerEvent(event *models.WebhookEvent) {
	r.fanOut(event)
}

// TriggerEventSync fans out the event and blocks until every first attempt
// has completed. Used where the caller needs delivery outcomes settled,
// such as tests and synchronous pipelines.
func (r *EventRouter) TriggerEventSync(event *models.WebhookEvent) {
	r.fanOut(event).Wait()
}

func (r *EventRouter) fanOut(event *models.WebhookEvent) *sync.WaitGroup {
	var wg sync.WaitGroup

	matched, err := r.configs.FindActiveForEvent(event.Type, event.OrganizationID)
	if err != nil {
		log.Error().Err(err).Str("event_type", event.Type).Msg("failed to look up webhook configs")
		return &wg
	}
	if len(matched) == 0 {
		// Most events have no subscribers; not an error.
		return &wg
	}

	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	for _, config := range matched {
		payload, err := json.Marshal(deliveryPayload{
			EventType: event.Type,
			Timestamp: timestamp.UTC().Format(time.RFC3339),
			Data:      event.Data,
			Webhook:   payloadWebhook{ID: config.ID, Name: config.Name},
		})
		if err != nil {
			log.Error().Err(err).Str("config_id", config.ID).Msg("failed to serialize webhook payload")
			continue
		}

		delivery := &models.WebhookDelivery{
			WebhookConfigID: config.ID,
			EventType:       event.Type,
			Payload:         string(payload),
		}
		if err := r.deliveries.Create(delivery); err != nil {
			// Isolated per config: the remaining subscribers still get theirs.
			log.Error().Err(err).Str("config_id", config.ID).Msg("failed to create webhook delivery")
			continue
		}

		wg.Add(1)
		go func(delivery *models.WebhookDelivery, config *models.WebhookConfig) {
			defer wg.Done()
			r.sem <- struct{}{}
			defer func() { <-r.sem }()
			r.dispatcher.Deliver(delivery, config)
		}(delivery, config)
	}

	return &wg
}

// TriggerTest sends a webhook.test event to a single config, exercising the
// full delivery path. The created delivery is returned with its outcome.
func (r *EventRouter) TriggerTest(config *models.WebhookConfig) (*models.WebhookDelivery, error) {
	payload, err := json.Marshal(deliveryPayload{
		EventType: EventWebhookTest,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      map[string]interface{}{"message": "test delivery"},
		Webhook:   payloadWebhook{ID: config.ID, Name: config.Name},
	})
	if err != nil {
		return nil, err
	}

	delivery := &models.WebhookDelivery{
		WebhookConfigID: config.ID,
		EventType:       EventWebhookTest,
		Payload:         string(payload),
	}
	if err := r.deliveries.Create(delivery); err != nil {
		return nil, err
	}

	r.dispatcher.Deliver(delivery, config)

	return r.deliveries.GetByID(delivery.ID)
}
