package webhooks

import (
	"bytes"
	"database/sql"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/moleary1107/etownz-grants-sub006/internal/platform/config"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/models"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/repositories"
)

// Dispatcher performs a single HTTP delivery attempt and classifies the
// outcome. Any response below 500 counts as delivered: a subscriber's 4xx
// means the endpoint was reachable and rejected the payload by its own
// logic, which is not a transport failure worth retrying.
type Dispatcher struct {
	configs          *repositories.WebhookConfigRepository
	deliveries       *repositories.DeliveryRepository
	client           *http.Client
	userAgent        string
	maxResponseChars int
}

func NewDispatcher(configs *repositories.WebhookConfigRepository, deliveries *repositories.DeliveryRepository, cfg config.WebhooksConfig) *Dispatcher {
	return &Dispatcher{
		configs:    configs,
		deliveries: deliveries,
		client: &http.Client{
			Timeout: cfg.DispatchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent:        cfg.UserAgent,
		maxResponseChars: cfg.MaxResponseChars,
	}
}

// Deliver attempts one POST to the subscriber. config may be nil, in which
// case it is loaded by the delivery's config id; a missing config abandons
// the delivery (retrying against a deleted subscription is meaningless).
func (d *Dispatcher) Deliver(delivery *models.WebhookDelivery, config *models.WebhookConfig) {
	if delivery.Status == models.DeliveryDelivered {
		return
	}

	if config == nil {
		var err error
		config, err = d.configs.GetByID(delivery.WebhookConfigID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				log.Error().
					Str("delivery_id", delivery.ID).
					Str("config_id", delivery.WebhookConfigID).
					Msg("webhook config no longer exists, abandoning delivery")
			} else {
				log.Error().Err(err).Str("delivery_id", delivery.ID).Msg("failed to load webhook config")
			}
			return
		}
	}

	payload := []byte(delivery.Payload)

	req, err := http.NewRequest(http.MethodPost, config.URL, bytes.NewReader(payload))
	if err != nil {
		d.recordFailure(delivery, nil, err.Error())
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("X-Webhook-Event", delivery.EventType)
	req.Header.Set("X-Webhook-Delivery", delivery.ID)
	if config.SecretKey != "" {
		req.Header.Set("X-Webhook-Signature", Sign(payload, config.SecretKey))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		log.Warn().Err(err).
			Str("delivery_id", delivery.ID).
			Str("url", config.URL).
			Msg("webhook request failed")
		d.recordFailure(delivery, nil, err.Error())
		return
	}
	defer resp.Body.Close()

	body := d.readBody(resp.Body)

	if resp.StatusCode < http.StatusInternalServerError {
		d.recordSuccess(delivery, config, resp.StatusCode, body)
		return
	}

	status := resp.StatusCode
	d.recordFailure(delivery, &status, body)
}

func (d *Dispatcher) recordSuccess(delivery *models.WebhookDelivery, config *models.WebhookConfig, responseStatus int, responseBody string) {
	if err := d.deliveries.MarkDelivered(delivery.ID, responseStatus, responseBody); err != nil {
		log.Error().Err(err).Str("delivery_id", delivery.ID).Msg("failed to mark delivery delivered")
		return
	}
	delivery.Status = models.DeliveryDelivered
	delivery.NextRetryAt = nil

	if err := d.configs.TouchLastTriggered(config.ID); err != nil {
		log.Error().Err(err).Str("config_id", config.ID).Msg("failed to stamp last triggered")
	}

	log.Info().
		Str("delivery_id", delivery.ID).
		Str("config_id", config.ID).
		Str("event_type", delivery.EventType).
		Int("response_status", responseStatus).
		Msg("webhook delivered")
}

// recordFailure increments the attempt count and persists the outcome with
// the next retry time in a single write. Once the budget is exhausted the
// delivery is permanently failed with no retry scheduled.
func (d *Dispatcher) recordFailure(delivery *models.WebhookDelivery, responseStatus *int, responseBody string) {
	delivery.AttemptCount++
	delivery.Status = models.DeliveryFailed
	delivery.NextRetryAt = nextRetryAt(delivery.AttemptCount)

	if err := d.deliveries.MarkFailed(delivery.ID, responseStatus, responseBody, delivery.AttemptCount, delivery.NextRetryAt); err != nil {
		log.Error().Err(err).Str("delivery_id", delivery.ID).Msg("failed to mark delivery failed")
		return
	}

	evt := log.Warn().
		Str("delivery_id", delivery.ID).
		Str("event_type", delivery.EventType).
		Int("attempt", delivery.AttemptCount)
	if delivery.NextRetryAt != nil {
		evt.Int64("next_retry_at", *delivery.NextRetryAt).Msg("webhook delivery failed, retry scheduled")
	} else {
		evt.Msg("webhook delivery failed permanently, retries exhausted")
	}
}

func (d *Dispatcher) readBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, int64(d.maxResponseChars)+1))
	if err != nil {
		return ""
	}
	if len(body) > d.maxResponseChars {
		body = body[:d.maxResponseChars]
	}
	return string(body)
}
