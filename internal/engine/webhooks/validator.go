package webhooks

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/moleary1107/etownz-grants-sub006/internal/platform/models"
)

// Event types emitted by the grants platform.
const (
	EventNewGrantMatch           = "new_grant_match"
	EventGrantDeadlineReminder   = "grant_deadline_reminder"
	EventSubmissionStatusChanged = "submission_status_changed"
	EventApplicationCreated      = "application_created"
	EventWebhookTest             = "webhook.test"
)

var knownEventTypes = map[string]bool{
	EventNewGrantMatch:           true,
	EventGrantDeadlineReminder:   true,
	EventSubmissionStatusChanged: true,
	EventApplicationCreated:      true,
	EventWebhookTest:             true,
}

var (
	ErrEmptyName   = errors.New("webhook name is required")
	ErrEmptyEvents = errors.New("webhook must subscribe to at least one event")
	ErrInvalidURL  = errors.New("webhook url must be a valid absolute http or https URL")
)

// ValidateConfig rejects malformed registrations before they can ever reach
// the delivery path.
func ValidateConfig(config *models.WebhookConfig) error {
	if config.Name == "" {
		return ErrEmptyName
	}

	parsed, err := url.Parse(config.URL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return ErrInvalidURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidURL
	}

	if len(config.Events) == 0 {
		return ErrEmptyEvents
	}
	for _, event := range config.Events {
		if !knownEventTypes[event] {
			return fmt.Errorf("unknown event type: %s", event)
		}
	}

	return nil
}

// KnownEventType reports whether the engine recognizes the event type.
func KnownEventType(eventType string) bool {
	return knownEventTypes[eventType]
}
