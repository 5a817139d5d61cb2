package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"

	apiContext "github.com/moleary1107/etownz-grants-sub006/internal/api/context"
	"github.com/moleary1107/etownz-grants-sub006/internal/pkg/errors"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/auth"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/models"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/repositories"
)

// APIKeyHandler issues machine-to-machine keys for domain services that call
// the event trigger endpoint. Keys are stored bcrypt-hashed; the plaintext
// is returned once at creation.
type APIKeyHandler struct {
	repo *repositories.APIKeyRepository
}

func NewAPIKeyHandler(repo *repositories.APIKeyRepository) *APIKeyHandler {
	return &APIKeyHandler{repo: repo}
}

func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Key name is required", nil)
		return
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to generate key", nil)
		return
	}
	plaintext := "gwk_" + hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to hash key", nil)
		return
	}

	key := &models.APIKey{
		OrganizationID: claims.OrganizationID,
		Name:           req.Name,
		KeyHash:        string(hash),
		KeyPrefix:      plaintext[:12],
	}
	if err := h.repo.Create(key); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to store key", nil)
		return
	}

	response := struct {
		*models.APIKey
		Key string `json:"key"`
	}{key, plaintext}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	keys, err := h.repo.ListByOrg(claims.OrganizationID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list keys", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(keys)
}

func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	id := params.ByName("key_id")

	if err := h.repo.Revoke(id); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to revoke key", nil)
		return
	}

	w.WriteHeader(http.StatusOK)
}
