package models

import "time"

// Delivery status values. A delivery is created pending, moves to delivered
// on the first accepted attempt, or to failed after an unsuccessful one.
// Failed deliveries with a next_retry_at remain retryable; failed with a
// null next_retry_at are permanently abandoned.
const (
	DeliveryPending   = "pending"
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// WebhookConfig is a subscriber registration. OrganizationID is empty for
// global subscriptions that receive events from every organization.
type WebhookConfig struct {
	ID              string   `json:"id"`
	OrganizationID  string   `json:"organization_id,omitempty"`
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Events          []string `json:"events"` // JSON array in DB
	IsActive        bool     `json:"is_active"`
	SecretKey       string   `json:"-"` // never serialized; redacted on read
	LastTriggeredAt int64    `json:"last_triggered_at,omitempty"`
	CreatedAt       int64    `json:"created_at"`
	UpdatedAt       int64    `json:"updated_at"`
}

// WebhookDelivery tracks one attempt-series of a single event instance to a
// single subscriber. Payload holds the exact JSON bytes sent on the wire so
// retries (and signatures) are byte-identical across attempts.
type WebhookDelivery struct {
	ID              string `json:"id"`
	WebhookConfigID string `json:"webhook_config_id"`
	EventType       string `json:"event_type"`
	Payload         string `json:"payload"`
	Status          string `json:"status"`
	ResponseStatus  *int   `json:"response_status,omitempty"`
	ResponseBody    string `json:"response_body,omitempty"`
	AttemptCount    int    `json:"attempt_count"`
	NextRetryAt     *int64 `json:"next_retry_at,omitempty"`
	DeliveredAt     *int64 `json:"delivered_at,omitempty"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

// WebhookEvent is what domain code hands to the router. Data is opaque to
// the engine; it is transported byte-for-byte inside the delivery payload.
type WebhookEvent struct {
	Type           string      `json:"event_type"`
	OrganizationID string      `json:"organization_id,omitempty"`
	UserID         string      `json:"user_id,omitempty"`
	Data           interface{} `json:"data"`
	Timestamp      time.Time   `json:"timestamp"`
}

// DeliveryStats is derived on demand, never stored.
type DeliveryStats struct {
	Total       int     `json:"total"`
	Delivered   int     `json:"delivered"`
	Failed      int     `json:"failed"`
	Pending     int     `json:"pending"`
	SuccessRate float64 `json:"success_rate"`
}
