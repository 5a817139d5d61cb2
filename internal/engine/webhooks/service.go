package webhooks

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"

	"github.com/moleary1107/etownz-grants-sub006/internal/platform/models"
	"github.com/moleary1107/etownz-grants-sub006/internal/platform/repositories"
)

var ErrConfigNotFound = errors.New("webhook config not found")

// ConfigUpdate carries a partial mutation of a registration. Nil fields are
// left untouched.
type ConfigUpdate struct {
	Name      *string
	URL       *string
	Events    []string
	IsActive  *bool
	SecretKey *string
}

// Service owns the webhook configuration lifecycle. Secrets are generated
// at registration when the caller supplies none and are returned exactly
// once; reads always come back redacted via the model's JSON tags.
type Service struct {
	configs    *repositories.WebhookConfigRepository
	deliveries *repositories.DeliveryRepository
}

func NewService(configs *repositories.WebhookConfigRepository, deliveries *repositories.DeliveryRepository) *Service {
	return &Service{configs: configs, deliveries: deliveries}
}

// Register validates and stores a new subscriber. Returns the generated
// secret so the caller can show it once; it is never readable afterwards.
func (s *Service) Register(config *models.WebhookConfig) (string, error) {
	if err := ValidateConfig(config); err != nil {
		return "", err
	}

	if config.SecretKey == "" {
		secret, err := generateSecret()
		if err != nil {
			return "", err
		}
		config.SecretKey = secret
	}
	config.IsActive = true

	if err := s.configs.Create(config); err != nil {
		return "", err
	}

	return config.SecretKey, nil
}

func (s *Service) Get(id string) (*models.WebhookConfig, error) {
	config, err := s.configs.GetByID(id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConfigNotFound
	}
	return config, err
}

func (s *Service) List(orgID string) ([]*models.WebhookConfig, error) {
	return s.configs.ListByOrg(orgID)
}

func (s *Service) Update(id string, update *ConfigUpdate) (*models.WebhookConfig, error) {
	config, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		config.Name = *update.Name
	}
	if update.URL != nil {
		config.URL = *update.URL
	}
	if update.Events != nil {
		config.Events = update.Events
	}
	if update.IsActive != nil {
		config.IsActive = *update.IsActive
	}
	if update.SecretKey != nil {
		config.SecretKey = *update.SecretKey
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	if err := s.configs.Update(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Deregister removes the config. Its deliveries stay behind as history but
// can never be retried: the dispatcher abandons any delivery whose parent
// config no longer exists.
func (s *Service) Deregister(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.configs.Delete(id)
}

func (s *Service) Deliveries(configID string, limit, offset int) ([]*models.WebhookDelivery, error) {
	return s.deliveries.ListByConfig(configID, limit, offset)
}

func generateSecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(buf), nil
}
