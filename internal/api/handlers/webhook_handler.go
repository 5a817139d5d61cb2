package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	apiContext "github.com/moleary1107/etownz-grants-sub006/internal/api/context"
	"github.com/moleary1107/etownz-grants-sub006/internal/engine/webhooks"
	"github.com/moleary1107/etownz-grants-sub006/internal/pkg/errors"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/auth"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/models"
)

type WebhookHandler struct {
	service *webhooks.Service
	router  *webhooks.EventRouter
	stats   *webhooks.StatsAggregator
}

func NewWebhookHandler(service *webhooks.Service, router *webhooks.EventRouter, stats *webhooks.StatsAggregator) *WebhookHandler {
	return &WebhookHandler{service: service, router: router, stats: stats}
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	var req struct {
		Name   string   `json:"name"`
		URL    string   `json:"url"`
		Events []string `json:"events"`
		Secret string   `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	config := &models.WebhookConfig{
		OrganizationID: claims.OrganizationID,
		Name:           req.Name,
		URL:            req.URL,
		Events:         req.Events,
		SecretKey:      req.Secret,
	}

	secret, err := h.service.Register(config)
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	// The secret is shown once at registration; every later read is redacted.
	response := struct {
		*models.WebhookConfig
		Secret string `json:"secret"`
	}{config, secret}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	configs, err := h.service.List(claims.OrganizationID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list webhooks", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(configs)
}

func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	config, ok := h.loadConfig(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(config)
}

func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	id := params.ByName("webhook_id")

	var req struct {
		Name     *string  `json:"name"`
		URL      *string  `json:"url"`
		Events   []string `json:"events"`
		IsActive *bool    `json:"is_active"`
		Secret   *string  `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	config, err := h.service.Update(id, &webhooks.ConfigUpdate{
		Name:      req.Name,
		URL:       req.URL,
		Events:    req.Events,
		IsActive:  req.IsActive,
		SecretKey: req.Secret,
	})
	if err == webhooks.ErrConfigNotFound {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook not found", nil)
		return
	}
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(config)
}

func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	id := params.ByName("webhook_id")

	err := h.service.Deregister(id)
	if err == webhooks.ErrConfigNotFound {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook not found", nil)
		return
	}
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to delete webhook", nil)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	config, ok := h.loadConfig(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	deliveries, err := h.service.Deliveries(config.ID, limit, offset)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list deliveries", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deliveries)
}

func (h *WebhookHandler) Stats(w http.ResponseWriter, r *http.Request) {
	config, ok := h.loadConfig(w, r)
	if !ok {
		return
	}

	stats, err := h.stats.Stats(config.ID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to compute stats", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (h *WebhookHandler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats("")
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to compute stats", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// Test fires a webhook.test event at a single config through the full
// delivery path and returns the resulting delivery record.
func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	config, ok := h.loadConfig(w, r)
	if !ok {
		return
	}

	delivery, err := h.router.TriggerTest(config)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to send test delivery", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(delivery)
}

func (h *WebhookHandler) loadConfig(w http.ResponseWriter, r *http.Request) (*models.WebhookConfig, bool) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	id := params.ByName("webhook_id")

	config, err := h.service.Get(id)
	if err != nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook not found", nil)
		return nil, false
	}
	return config, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
