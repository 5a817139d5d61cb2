package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/moleary1107/etownz-grants-sub006/internal/platform/models"
)

type WebhookConfigRepository struct {
	db *sql.DB
}

func NewWebhookConfigRepository(db *sql.DB) *WebhookConfigRepository {
	return &WebhookConfigRepository{db: db}
}

func (r *WebhookConfigRepository) Create(config *models.WebhookConfig) error {
	config.ID = "wh_" + uuid.New().String()
	config.CreatedAt = time.Now().Unix()
	config.UpdatedAt = config.CreatedAt

	eventsJSON, err := json.Marshal(config.Events)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO webhook_configs (id, organization_id, name, url, events, is_active, secret_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, config.ID, nullString(config.OrganizationID), config.Name, config.URL,
		string(eventsJSON), config.IsActive, nullString(config.SecretKey), config.CreatedAt, config.UpdatedAt)
	return err
}

func (r *WebhookConfigRepository) GetByID(id string) (*models.WebhookConfig, error) {
	query := `
		SELECT id, organization_id, name, url, events, is_active, secret_key, last_triggered_at, created_at, updated_at
		FROM webhook_configs WHERE id = ?
	`
	return scanConfig(r.db.QueryRow(query, id))
}

func (r *WebhookConfigRepository) ListByOrg(orgID string) ([]*models.WebhookConfig, error) {
	query := `
		SELECT id, organization_id, name, url, events, is_active, secret_key, last_triggered_at, created_at, updated_at
		FROM webhook_configs WHERE organization_id = ? OR organization_id IS NULL
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*models.WebhookConfig
	for rows.Next() {
		config, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, config)
	}
	return configs, rows.Err()
}

func (r *WebhookConfigRepository) Update(config *models.WebhookConfig) error {
	eventsJSON, err := json.Marshal(config.Events)
	if err != nil {
		return err
	}
	config.UpdatedAt = time.Now().Unix()

	query := `
		UPDATE webhook_configs
		SET name = ?, url = ?, events = ?, is_active = ?, secret_key = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.Exec(query, config.Name, config.URL, string(eventsJSON), config.IsActive,
		nullString(config.SecretKey), config.UpdatedAt, config.ID)
	return err
}

func (r *WebhookConfigRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM webhook_configs WHERE id = ?`, id)
	return err
}

func (r *WebhookConfigRepository) TouchLastTriggered(id string) error {
	_, err := r.db.Exec(`UPDATE webhook_configs SET last_triggered_at = ? WHERE id = ?`, time.Now().Unix(), id)
	return err
}

// FindActiveForEvent returns active configs subscribed to eventType. When the
// event carries an organization, both that organization's configs and global
// ones match; org-less events reach only global configs. Event membership is
// checked in the application since events is a JSON array column.
func (r *WebhookConfigRepository) FindActiveForEvent(eventType, orgID string) ([]*models.WebhookConfig, error) {
	query := `
		SELECT id, organization_id, name, url, events, is_active, secret_key, last_triggered_at, created_at, updated_at
		FROM webhook_configs WHERE is_active = 1 AND (organization_id IS NULL OR organization_id = ?)
	`
	rows, err := r.db.Query(query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matched []*models.WebhookConfig
	for rows.Next() {
		config, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		for _, e := range config.Events {
			if e == eventType {
				matched = append(matched, config)
				break
			}
		}
	}
	return matched, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConfig(row rowScanner) (*models.WebhookConfig, error) {
	var c models.WebhookConfig
	var orgID, secretKey sql.NullString
	var eventsStr string
	var lastTriggeredAt sql.NullInt64

	err := row.Scan(&c.ID, &orgID, &c.Name, &c.URL, &eventsStr, &c.IsActive, &secretKey,
		&lastTriggeredAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.OrganizationID = orgID.String
	c.SecretKey = secretKey.String
	if lastTriggeredAt.Valid {
		c.LastTriggeredAt = lastTriggeredAt.Int64
	}
	json.Unmarshal([]byte(eventsStr), &c.Events)

	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
