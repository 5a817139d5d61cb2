package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	apiContext "github.com/moleary1107/etownz-grants-sub006/internal/api/context"
	"github.com/moleary1107/etownz-grants-sub006/internal/engine/webhooks"
	"github.com/moleary1107/etownz-grants-sub006/internal/pkg/errors"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/auth"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/models"
)

// EventHandler is the internal trigger surface for domain services (grant
// matching, submission pipeline). Triggering is fire-and-forget: the
// response acknowledges fan-out initiation, not delivery completion.
type EventHandler struct {
	router *webhooks.EventRouter
}

func NewEventHandler(router *webhooks.EventRouter) *EventHandler {
	return &EventHandler{router: router}
}

func (h *EventHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	var req struct {
		EventType string      `json:"event_type"`
		UserID    string      `json:"user_id"`
		Data      interface{} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if !webhooks.KnownEventType(req.EventType) {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Unknown event type", nil)
		return
	}

	h.router.TriggerEvent(&models.WebhookEvent{
		Type:           req.EventType,
		OrganizationID: claims.OrganizationID,
		UserID:         req.UserID,
		Data:           req.Data,
		Timestamp:      time.Now(),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}
